package flow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFlow() *Flow {
	f := New("org-1", ChannelWhatsApp)
	f.Name = "Atendimento"
	f.Nodes = []Node{
		{ID: "A", Type: "inicio", Position: Position{X: 0, Y: 0}, Data: NodeData{Label: "Início", Config: Config{"mensagemBoasVindas": "Olá"}}},
		{ID: "B", Type: "menu", Position: Position{X: 100, Y: 50}, Data: NodeData{Label: "Menu", Config: Config{"mensagem": "Escolha", "opcoes": []any{"Vendas", "Suporte"}}}},
		{ID: "C", Type: "mensagem", Position: Position{X: 200, Y: 80}, Data: NodeData{Label: "Fim", Config: Config{"texto": "Tchau"}}},
	}
	f.Edges = []Edge{
		{ID: "e1", Source: "A", Target: "B"},
		{ID: "e2", Source: "B", Target: "C", SourceHandle: "opcao_0"},
	}
	return f
}

func TestDedupEdges_KeepsFirstOccurrence(t *testing.T) {
	in := []Edge{
		{ID: "e1", Source: "A", Target: "B", Label: "first"},
		{ID: "e2", Source: "A", Target: "B", Label: "second"},
		{ID: "e3", Source: "A", Target: "C"},
	}

	out := DedupEdges(in)

	require.Len(t, out, 2)
	assert.Equal(t, "e1", out[0].ID)
	assert.Equal(t, "first", out[0].Label)
	assert.Equal(t, "e3", out[1].ID)
}

func TestDedupEdges_HandleIsPartOfIdentity(t *testing.T) {
	in := []Edge{
		{ID: "e1", Source: "D", Target: "X", SourceHandle: "sim"},
		{ID: "e2", Source: "D", Target: "X", SourceHandle: "nao"},
		{ID: "e3", Source: "D", Target: "X", SourceHandle: "sim", TargetHandle: "other"},
	}

	out := DedupEdges(in)

	require.Len(t, out, 2)
	assert.Equal(t, []string{"e1", "e2"}, []string{out[0].ID, out[1].ID})
}

func TestDedupEdges_Idempotent(t *testing.T) {
	in := []Edge{{ID: "1", Source: "a", Target: "b"}, {ID: "2", Source: "a", Target: "b"}}
	once := DedupEdges(in)
	assert.Equal(t, once, DedupEdges(once))
}

func TestFlow_RemoveNodeCascades(t *testing.T) {
	f := sampleFlow()

	require.True(t, f.RemoveNode("B"))

	assert.Len(t, f.Nodes, 2)
	assert.Empty(t, f.Edges)
	assert.False(t, f.RemoveNode("B"))
}

func TestFlow_ConnectRejectsDuplicateKey(t *testing.T) {
	f := sampleFlow()

	assert.False(t, f.Connect(Edge{ID: "other", Source: "A", Target: "B"}))
	assert.True(t, f.Connect(Edge{ID: "e3", Source: "A", Target: "C"}))
	assert.Len(t, f.Edges, 3)
}

func TestFlow_CloneIsDeep(t *testing.T) {
	f := sampleFlow()
	c := f.Clone()

	c.Nodes[1].Data.Config["opcoes"].([]any)[0] = "changed"
	c.Edges[0].Label = "x"

	assert.Equal(t, "Vendas", f.Nodes[1].Data.Config["opcoes"].([]any)[0])
	assert.Empty(t, f.Edges[0].Label)
}

func TestFlow_NormalizeDedupsAndFillsConfig(t *testing.T) {
	f := sampleFlow()
	f.Nodes[2].Data.Config = nil
	f.Edges = append(f.Edges, Edge{ID: "dup", Source: "A", Target: "B"})

	n := f.Normalize()

	assert.Len(t, n.Edges, 2)
	assert.NotNil(t, n.Nodes[2].Data.Config)
	assert.Len(t, f.Edges, 3, "original left untouched")
}

func TestFlow_NormalizeRoundTrip(t *testing.T) {
	f := sampleFlow()
	f.Edges = append(f.Edges, Edge{ID: "dup", Source: "B", Target: "C", SourceHandle: "opcao_0"})

	raw, err := json.Marshal(f.Normalize())
	require.NoError(t, err)

	var back Flow
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, f.Normalize().Nodes, back.Nodes)
	assert.Equal(t, f.Normalize().Edges, back.Edges)
}

func TestFlow_Validate(t *testing.T) {
	f := sampleFlow()
	require.NoError(t, f.Validate())

	f.Name = " "
	assert.ErrorIs(t, f.Validate(), ErrMissingName)

	f = sampleFlow()
	f.Nodes = append(f.Nodes, Node{ID: "A", Type: "mensagem"})
	err := f.Validate()
	assert.ErrorIs(t, err, ErrDuplicateNode)
	var nodeErr *NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, "A", nodeErr.NodeID)

	f = sampleFlow()
	f.Edges = append(f.Edges, Edge{ID: "bad", Source: "A", Target: "Z"})
	assert.ErrorIs(t, f.Validate(), ErrDanglingEdge)
}

func TestFlow_RekeyOptionHandles(t *testing.T) {
	f := New("org", ChannelWhatsApp)
	f.Nodes = []Node{{ID: "M"}, {ID: "X"}, {ID: "Y"}, {ID: "Z"}}
	f.Edges = []Edge{
		{ID: "0", Source: "M", Target: "X", SourceHandle: "opcao_0"},
		{ID: "1", Source: "M", Target: "Y", SourceHandle: "opcao_1"},
		{ID: "2", Source: "M", Target: "Z", SourceHandle: "opcao_2"},
		{ID: "in", Source: "X", Target: "M"},
	}

	f.RekeyOptionHandles("M", 1)

	require.Len(t, f.Edges, 3)
	assert.Equal(t, "opcao_0", f.Edges[0].SourceHandle)
	assert.Equal(t, "Z", f.Edges[1].Target)
	assert.Equal(t, "opcao_1", f.Edges[1].SourceHandle)
	assert.Equal(t, "in", f.Edges[2].ID)
}
