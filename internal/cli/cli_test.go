package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-flow-editor/internal/api"
	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/models"
	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/internal/testutil/testdb"
)

var (
	atendimentoFile = filepath.Join("testdata", "flows", "atendimento.yaml")
	incompletoFile  = filepath.Join("testdata", "flows", "incompleto.json")
)

type nopEvents struct{}

func (nopEvents) BroadcastEvent(string, interface{}) {}

// run executes flowctl with args and returns stdout and stderr.
func run(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{APIURL: "http://127.0.0.1:1"}
	}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand(cfg)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func newServer(t *testing.T) (*config.Config, *store.FlowStore) {
	gin.SetMode(gin.TestMode)
	st := store.New(testdb.Open(t))
	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{Store: st, Events: nopEvents{}, UploadDir: t.TempDir()}))
	t.Cleanup(srv.Close)
	return &config.Config{APIURL: srv.URL, OrganizationID: "org-1", UserID: "u-1"}, st
}

func TestInvalidFormat(t *testing.T) {
	_, stderr, err := run(t, nil, "blocks", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "invalid format")
}

func TestBlocks(t *testing.T) {
	out, _, err := run(t, nil, "blocks")
	require.NoError(t, err)
	assert.Contains(t, out, "menu")
	assert.Contains(t, out, "opcoes")
	assert.Contains(t, out, "agenteId")

	out, _, err = run(t, nil, "blocks", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Type string `json:"type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data, 12)
}

func TestValidate_Valid(t *testing.T) {
	out, _, err := run(t, nil, "validate", atendimentoFile)
	require.NoError(t, err)
	assert.Equal(t, "✓ flow \"Atendimento\" is valid (4 nodes, 3 edges)\n", out)
}

func TestValidate_Invalid(t *testing.T) {
	out, _, err := run(t, nil, "validate", incompletoFile)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ flow is invalid")
	assert.Contains(t, out, "name: field is required")
	assert.Contains(t, out, "node menu (Menu): opcoes: field is required")
	assert.Contains(t, out, "edge e1")
	assert.Contains(t, out, "! node velho: unknown block type \"bloco_legado\"")

	out, _, err = run(t, nil, "validate", incompletoFile, "--format", "json")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "flow is invalid", resp.Error.Message)
}

func TestValidate_MissingFile(t *testing.T) {
	out, _, err := run(t, nil, "validate", "nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "nope.yaml")
}

func TestNormalize_Golden(t *testing.T) {
	out, _, err := run(t, nil, "normalize", atendimentoFile)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir(filepath.Join("testdata", "golden")))
	g.Assert(t, "normalize_atendimento", []byte(out))
}

func TestNormalize_JSONMatchesYAML(t *testing.T) {
	yamlFlow, err := LoadFlowFile(atendimentoFile)
	require.NoError(t, err)

	raw, err := json.Marshal(yamlFlow)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "atendimento.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	fromYAML, _, err := run(t, nil, "normalize", atendimentoFile)
	require.NoError(t, err)
	fromJSON, _, err := run(t, nil, "normalize", path)
	require.NoError(t, err)
	assert.Equal(t, fromYAML, fromJSON)
}

func TestLoadFlowFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.txt")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err := LoadFlowFile(path)
	assert.ErrorContains(t, err, "unsupported")
}

func TestPushPublishListToggleDelete(t *testing.T) {
	cfg, _ := newServer(t)

	out, stderr, err := run(t, cfg, "push", atendimentoFile, "--publish")
	require.NoError(t, err, stderr)
	id := string(bytes.TrimSpace([]byte(out)))
	require.NotEmpty(t, id)
	assert.Contains(t, stderr, "✓ Fluxo salvo com sucesso")
	assert.Contains(t, stderr, "✓ Fluxo publicado")

	out, _, err = run(t, cfg, "list", "--format", "json")
	require.NoError(t, err)
	var listed struct {
		Data []FlowSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, FlowSummary{ID: id, Name: "Atendimento", Channel: "whatsapp", Active: true, Nodes: 4, Edges: 3}, listed.Data[0])

	_, stderr, err = run(t, cfg, "push", atendimentoFile, "--publish")
	require.Error(t, err, "a second active flow on the same channel is rejected")
	assert.Contains(t, stderr, "Já existe um fluxo ativo para o canal whatsapp: Atendimento")

	_, stderr, err = run(t, cfg, "toggle", id, "--active=false")
	require.NoError(t, err)
	assert.Contains(t, stderr, "✓ Fluxo desativado")

	_, stderr, err = run(t, cfg, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, stderr, "✓ Fluxo excluído")

	out, _, err = run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Atendimento", "the rejected second push was saved before publishing")
}

func TestPush_RefreshRefsClearsStaleSelection(t *testing.T) {
	cfg, st := newServer(t)
	ctx := context.Background()
	require.NoError(t, st.CreateReference(ctx, &models.Reference{ID: "ag-2", OrganizationID: "org-1", Kind: "agente", Name: "João"}))

	_, stderr, err := run(t, cfg, "push", atendimentoFile, "--refresh-refs")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "node vendas (Vendas): agenteId: field is required")

	require.NoError(t, st.CreateReference(ctx, &models.Reference{ID: "ag-1", OrganizationID: "org-1", Kind: "agente", Name: "Maria"}))
	out, stderr, err := run(t, cfg, "push", atendimentoFile, "--refresh-refs")
	require.NoError(t, err, stderr)

	saved, err := st.Get(ctx, string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "ag-1", saved.Nodes[2].Data.Config["agenteId"])
	assert.Equal(t, "org-1", saved.OrganizationID)
	assert.Equal(t, "u-1", saved.OwnerUserID)
}

func TestPush_ServerDown(t *testing.T) {
	_, stderr, err := run(t, &config.Config{APIURL: "http://127.0.0.1:1", OrganizationID: "org-1"}, "push", atendimentoFile)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "✗")
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("http://localhost:8080/"))
	assert.Equal(t, "wss://flows.example.com/ws", wsURL("https://flows.example.com"))
}
