package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "AUTOSAVE_DELAY", "PROPAGATION_DELAY", "REFERENCE_RETRIES"} {
		t.Setenv(k, "")
	}
	t.Setenv("PORT", "9090")

	cfg := fromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "", cfg.DBDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutosaveDelay, "empty duration falls back")
	assert.Equal(t, 300*time.Millisecond, cfg.PropagationDelay)
	assert.Equal(t, 2, cfg.ReferenceRetries)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("AUTOSAVE_DELAY", "2s")
	t.Setenv("PROPAGATION_DELAY", "-1s")
	t.Setenv("REFERENCE_RETRIES", "5")
	t.Setenv("ORGANIZATION_ID", "org-9")

	cfg := fromEnv()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 2*time.Second, cfg.AutosaveDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.PropagationDelay, "negative duration falls back")
	assert.Equal(t, 5, cfg.ReferenceRetries)
	assert.Equal(t, "org-9", cfg.OrganizationID)
}
