package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

func fields(errs ValidationErrors) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Field
	}
	return out
}

func TestValidateNode_DefaultsFailRequired(t *testing.T) {
	in := newInterpreter()
	cfg, err := in.DefaultConfig("menu")
	require.NoError(t, err)

	errs := in.ValidateNode(flow.Node{ID: "m", Type: "menu", Data: flow.NodeData{Label: "Menu", Config: cfg}})

	assert.Equal(t, []string{"mensagem", "opcoes"}, fields(errs))
	assert.Contains(t, errs.Error(), "node m (Menu)")
}

func TestValidateNode_Horarios(t *testing.T) {
	in := newInterpreter()
	cfg, _ := in.DefaultConfig("horario")
	node := flow.Node{ID: "h", Type: "horario", Data: flow.NodeData{Config: cfg}}

	assert.Equal(t, []string{"diasSemana", "horarios"}, fields(in.ValidateNode(node)))

	cfg, _ = SetWeekday(cfg, "diasSemana", "sexta", true)
	cfg = AddInterval(cfg, "horarios")
	node.Data.Config = cfg
	assert.Empty(t, in.ValidateNode(node))

	cfg, _ = SetInterval(cfg, "horarios", 0, Interval{Start: "09:00"})
	node.Data.Config = cfg
	errs := in.ValidateNode(node)
	require.Len(t, errs, 1)
	assert.Equal(t, "horarios", errs[0].Field)
}

func TestValidateNode_UnknownTypeSkipped(t *testing.T) {
	assert.Nil(t, newInterpreter().ValidateNode(flow.Node{ID: "x", Type: "legacy"}))
}

func TestValidateFlow(t *testing.T) {
	in := newInterpreter()
	f := flow.New("org", flow.ChannelWhatsApp)

	err := in.ValidateFlow(f)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"name"}, fields(verrs))

	f.Name = "ok"
	f.Nodes = []flow.Node{{ID: "a", Type: "mensagem", Data: flow.NodeData{Config: flow.Config{"texto": "oi"}}}}
	assert.NoError(t, in.ValidateFlow(f))
}

func TestDiagnose(t *testing.T) {
	in := newInterpreter()
	f := flow.New("org", flow.ChannelWhatsApp)
	f.Nodes = []flow.Node{
		{ID: "a", Type: "mensagem"},
		{ID: "b", Type: "legacy_webhook"},
	}

	diags := in.Diagnose(f)

	require.Len(t, diags, 1)
	assert.Equal(t, "b", diags[0].NodeID)
	assert.Contains(t, diags[0].Message, "legacy_webhook")
}

func TestRequiredReferenceAndFile(t *testing.T) {
	in := newInterpreter()
	for _, typ := range []string{"transferir_agente", "transferir_departamento", "transferir_time", "agente_ia", "arquivo"} {
		cfg, err := in.DefaultConfig(typ)
		require.NoError(t, err)
		errs := in.ValidateNode(flow.Node{ID: typ, Type: typ, Data: flow.NodeData{Config: cfg}})
		require.Len(t, errs, 1, typ)

		def, _ := blocks.Default().DefinitionFor(typ)
		assert.Equal(t, def.ConfigFields[0].Key, errs[0].Field)
	}
}
