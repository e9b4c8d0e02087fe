package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/models"
	"whatsapp-flow-editor/internal/testutil/testdb"
)

func newStore(t *testing.T) *FlowStore {
	s := New(testdb.Open(t))
	n := 0
	s.newID = func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
	return s
}

func menuFlow() *flow.Flow {
	f := flow.New("org-1", flow.ChannelWhatsApp)
	f.Name = "Atendimento"
	f.Nodes = []flow.Node{
		{ID: "inicio", Type: "inicio", Position: flow.Position{X: 10, Y: 20}, Data: flow.NodeData{Label: "Início", Config: flow.Config{}}},
		{ID: "menu", Type: "menu", Position: flow.Position{X: 200, Y: 20}, Data: flow.NodeData{Label: "Menu", Config: flow.Config{
			"mensagem": "Escolha",
			"opcoes":   []any{"Vendas", "Suporte"},
		}}},
		{ID: "dias", Type: "horario", Data: flow.NodeData{Label: "Horário", Config: flow.Config{
			"diasSemana": map[string]any{"segunda": true},
			"horarios":   []any{map[string]any{"horaInicio": "09:00", "horaFim": "18:00"}},
		}}},
	}
	f.Edges = []flow.Edge{
		{ID: "e1", Source: "inicio", Target: "menu"},
		{ID: "e2", Source: "menu", Target: "dias", SourceHandle: "opcao_1"},
	}
	return f
}

func TestSave_CreateAssignsIDAndRoundTrips(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, menuFlow())
	require.NoError(t, err)
	assert.Equal(t, "id-1", saved.ID)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	assert.Equal(t, []any{"Vendas", "Suporte"}, got.Nodes[1].Data.Config["opcoes"])
	assert.Equal(t, "opcao_1", got.Edges[1].SourceHandle)
}

func TestSave_UpdateReplacesGraph(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saved, err := s.Save(ctx, menuFlow())
	require.NoError(t, err)

	saved.Name = "Atendimento v2"
	saved.Nodes = saved.Nodes[:2]
	saved.Edges = saved.Edges[:1]
	_, err = s.Save(ctx, saved)
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Atendimento v2", got.Name)
	assert.Len(t, got.Nodes, 2)
	assert.Len(t, got.Edges, 1)

	var count int64
	s.db.Model(&models.FlowNode{}).Count(&count)
	assert.EqualValues(t, 2, count, "old nodes are removed")
}

func TestSave_DropsDuplicateEdges(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	f := menuFlow()
	f.Edges = append(f.Edges,
		flow.Edge{ID: "e1-copy", Source: "inicio", Target: "menu"},
		flow.Edge{ID: "e3", Source: "menu", Target: "dias", SourceHandle: "opcao_0"},
	)

	saved, err := s.Save(ctx, f)
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	var ids []string
	for _, e := range got.Edges {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids, "same endpoints on another handle are distinct")
}

func TestSave_UnknownIDIsNotFound(t *testing.T) {
	s := newStore(t)
	f := menuFlow()
	f.ID = "missing"

	_, err := s.Save(context.Background(), f)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveConflict(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := menuFlow()
	first.Active = true
	first, err := s.Save(ctx, first)
	require.NoError(t, err)

	second, err := s.Save(ctx, menuFlow())
	require.NoError(t, err)

	second.Active = true
	_, err = s.Save(ctx, second)
	var conflict *ActiveConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "Já existe um fluxo ativo para o canal whatsapp: Atendimento", err.Error())

	err = s.SetActive(ctx, second.ID, true)
	assert.True(t, errors.As(err, &conflict))

	other := menuFlow()
	other.Channel = flow.ChannelTelegram
	other.Active = true
	_, err = s.Save(ctx, other)
	assert.NoError(t, err, "other channel is independent")

	require.NoError(t, s.SetActive(ctx, first.ID, false))
	require.NoError(t, s.SetActive(ctx, second.ID, true))

	got, err := s.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestList_ByOrganization(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, err := s.Save(ctx, menuFlow())
	require.NoError(t, err)
	elsewhere := menuFlow()
	elsewhere.OrganizationID = "org-2"
	_, err = s.Save(ctx, elsewhere)
	require.NoError(t, err)

	flows, err := s.List(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Len(t, flows[0].Nodes, 3)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	saved, err := s.Save(ctx, menuFlow())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, saved.ID))
	_, err = s.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, saved.ID), ErrNotFound)

	var count int64
	s.db.Model(&models.FlowEdge{}).Count(&count)
	assert.Zero(t, count)
}

func TestReferences(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateReference(ctx, &models.Reference{OrganizationID: "org-1", Kind: "agente", Name: "Maria"}))
	require.NoError(t, s.CreateReference(ctx, &models.Reference{OrganizationID: "org-1", Kind: "agente", Name: "Ana"}))
	require.NoError(t, s.CreateReference(ctx, &models.Reference{OrganizationID: "org-1", Kind: "time", Name: "Suporte"}))

	refs, err := s.ListReferences(ctx, "agente", "org-1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Ana", refs[0].Name)

	require.NoError(t, s.DeleteReference(ctx, refs[0].ID))
	refs, err = s.ListReferences(ctx, "agente", "org-1")
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	none, err := s.ListReferences(ctx, "departamento", "org-1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUploads(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	up := &models.Upload{OrganizationID: "org-1", Filename: "a.pdf", FileSize: 4}
	require.NoError(t, s.CreateUpload(ctx, up))
	assert.NotEmpty(t, up.Token)

	got, err := s.GetUpload(ctx, up.Token)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)

	_, err = s.GetUpload(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
