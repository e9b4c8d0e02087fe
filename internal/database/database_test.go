package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/database"
	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/models"
	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/internal/testutil/testdb"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := database.Open(&config.Config{DBDriver: "mysql"}, logger.Silent)
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

func TestPostgresDSN(t *testing.T) {
	dsn := database.PostgresDSN(&config.Config{
		DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "flows", DBPort: "5432", DBSSLMode: "disable",
	})
	assert.Equal(t, "host=db user=u password=p dbname=flows port=5432 sslmode=disable", dsn)
}

func TestCopyAll(t *testing.T) {
	ctx := context.Background()
	src, err := database.Open(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "src.db")}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(src))

	f := flow.New("org-1", flow.ChannelWebchat)
	f.Name = "Copiado"
	f.Nodes = []flow.Node{
		{ID: "a", Type: "inicio", Data: flow.NodeData{Label: "A", Config: flow.Config{}}},
		{ID: "b", Type: "encerrar", Data: flow.NodeData{Label: "B", Config: flow.Config{"mensagem": "tchau"}}},
	}
	f.Edges = []flow.Edge{{ID: "e1", Source: "a", Target: "b"}}
	saved, err := store.New(src).Save(ctx, f)
	require.NoError(t, err)
	require.NoError(t, src.Create(&models.Reference{ID: "r1", OrganizationID: "org-1", Kind: "time", Name: "Suporte"}).Error)

	dst := testdb.Open(t)
	require.NoError(t, database.CopyAll(src, dst))

	got, err := store.New(dst).Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	var refs int64
	dst.Model(&models.Reference{}).Count(&refs)
	assert.EqualValues(t, 1, refs)
}
