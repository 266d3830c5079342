package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/moneybot/internal/models"
)

const jsonDoc = `{"token": "123:abc", "chat": -100500, "dbfile": "/var/lib/moneybot/ledger.csv",
 "groups": {"Zed": [30], "Alpha": [10, 11], "Mid": [20]}}`

func TestParse_JSONKeepsGroupOrder(t *testing.T) {
	cfg, err := Parse([]byte(jsonDoc))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Token)
	assert.Equal(t, int64(-100500), cfg.ChatID)
	assert.Equal(t, "/var/lib/moneybot/ledger.csv", cfg.LedgerPath)
	assert.Equal(t, []models.Group{
		{Name: "Zed", Members: []int64{30}},
		{Name: "Alpha", Members: []int64{10, 11}},
		{Name: "Mid", Members: []int64{20}},
	}, cfg.Groups)
	assert.NoError(t, cfg.Validate())
}

func TestParse_YAML(t *testing.T) {
	doc := `
token: "123:abc"
chat: -42
dbfile: ledger.csv
groups:
  B: [2]
  A:
    - 1
    - 3
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)

	table, err := cfg.GroupTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, table.Names())
	g, ok := table.GroupOf(3)
	assert.True(t, ok)
	assert.Equal(t, "A", g)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not a document", `{"token": `},
		{"groups as list", `{"groups": ["A", "B"]}`},
		{"members not numbers", `{"groups": {"A": ["x"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing fields are all listed", func(t *testing.T) {
		cfg := &Config{Backend: BackendFile}
		err := cfg.Validate()
		require.Error(t, err)
		for _, field := range []string{"token", "chat", "groups", "dbfile"} {
			assert.Contains(t, err.Error(), field)
		}
	})

	valid := func() *Config {
		cfg, err := Parse([]byte(jsonDoc))
		require.NoError(t, err)
		return cfg
	}

	t.Run("unknown backend", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = "postgres"
		assert.ErrorContains(t, cfg.Validate(), "LEDGER_BACKEND")
	})

	t.Run("admin without secret", func(t *testing.T) {
		cfg := valid()
		cfg.AdminAddr = ":8080"
		assert.ErrorContains(t, cfg.Validate(), "ADMIN_JWT_SECRET")
	})

	t.Run("user in two groups", func(t *testing.T) {
		cfg := valid()
		cfg.Groups = append(cfg.Groups, models.Group{Name: "Dup", Members: []int64{10}})
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	t.Run("inline", func(t *testing.T) {
		t.Setenv(EnvInline, jsonDoc)
		t.Setenv("LEDGER_BACKEND", "SQLite")
		t.Setenv("ADMIN_ADDR", ":9090")
		t.Setenv("ADMIN_JWT_SECRET", "s3cret")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err, "an explicit .env path must exist")
		assert.Nil(t, cfg)

		cfg, err = Load()
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, cfg.Backend)
		assert.Equal(t, ":9090", cfg.AdminAddr)
		assert.Equal(t, "s3cret", cfg.AdminJWTSecret)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "moneybot.yaml")
		require.NoError(t, os.WriteFile(path, []byte(jsonDoc), 0o600))
		t.Setenv(EnvInline, "")
		t.Setenv(EnvFile, path)
		t.Setenv("LEDGER_BACKEND", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, BackendFile, cfg.Backend)
		assert.Len(t, cfg.Groups, 3)
	})

	t.Run("env file", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(envPath, []byte("MB_CONF_FILE=/nonexistent/moneybot.yaml\n"), 0o600))
		t.Setenv(EnvInline, "")
		// godotenv never overrides variables that are already set
		t.Setenv(EnvFile, "")
		require.NoError(t, os.Unsetenv(EnvFile))

		_, err := Load(envPath)
		assert.ErrorContains(t, err, EnvFile)
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv(EnvInline, "")
		t.Setenv(EnvFile, "")
		_, err := Load()
		assert.ErrorContains(t, err, EnvInline)
	})
}
