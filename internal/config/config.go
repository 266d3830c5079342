// Package config loads bot configuration from the environment, an optional
// .env file, and a JSON or YAML document describing the chat and its groups.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/moneybot/internal/models"
)

const (
	// EnvInline holds the whole document inline, as JSON or YAML.
	EnvInline = "MB_CONF"
	// EnvFile points at a YAML file with the same document. Used when
	// EnvInline is unset.
	EnvFile = "MB_CONF_FILE"

	EnvBackend     = "LEDGER_BACKEND"
	EnvAdminAddr   = "ADMIN_ADDR"
	EnvAdminSecret = "ADMIN_JWT_SECRET"
)

// Ledger backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	// Token is the Telegram bot token.
	Token string
	// ChatID is the only chat the bot answers in.
	ChatID int64
	// Groups in configured order. The order fixes ledger share columns.
	Groups []models.Group
	// LedgerPath is the ledger file (or SQLite database) location.
	LedgerPath string
	// Backend is BackendFile or BackendSQLite.
	Backend string

	// AdminAddr enables the admin API and /metrics when set, e.g. ":8080".
	AdminAddr      string
	AdminJWTSecret string
}

// document is the MB_CONF layout.
type document struct {
	Token  string    `yaml:"token"`
	Chat   int64     `yaml:"chat"`
	Groups yaml.Node `yaml:"groups"`
	DBFile string    `yaml:"dbfile"`
}

// Load reads configuration from the environment.
// It loads a .env file from the current directory if present, or from
// envPath when given.
func Load(envPath ...string) (*Config, error) {
	if err := LoadEnv(envPath...); err != nil {
		return nil, err
	}

	var data []byte
	if inline := os.Getenv(EnvInline); inline != "" {
		data = []byte(inline)
	} else if path := os.Getenv(EnvFile); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", EnvFile, err)
		}
		data = b
	} else {
		return nil, fmt.Errorf("%s or %s must be set", EnvInline, EnvFile)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Backend = strings.ToLower(getEnvOrDefault(EnvBackend, BackendFile))
	cfg.AdminAddr = os.Getenv(EnvAdminAddr)
	cfg.AdminJWTSecret = os.Getenv(EnvAdminSecret)
	return cfg, nil
}

// LoadEnv loads envPath, or .env from the current directory if it exists,
// into the process environment. Variables already set are kept.
func LoadEnv(envPath ...string) error {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

// Parse decodes a JSON or YAML document:
//
//	{"token": "...", "chat": -100123, "dbfile": "ledger.csv",
//	 "groups": {"A": [111, 222], "B": [333]}}
//
// Group order follows the document.
func Parse(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	groups, err := decodeGroups(&doc.Groups)
	if err != nil {
		return nil, err
	}

	return &Config{
		Token:      doc.Token,
		ChatID:     doc.Chat,
		Groups:     groups,
		LedgerPath: doc.DBFile,
		Backend:    BackendFile,
	}, nil
}

// decodeGroups walks the mapping node pair by pair so that group order
// survives decoding.
func decodeGroups(node *yaml.Node) ([]models.Group, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse config: groups must be a mapping of name to user ids (line %d)", node.Line)
	}

	groups := make([]models.Group, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var members []int64
		if err := node.Content[i+1].Decode(&members); err != nil {
			return nil, fmt.Errorf("failed to parse members of group %q: %w", name, err)
		}
		groups = append(groups, models.Group{Name: name, Members: members})
	}
	return groups, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "token")
	}
	if c.ChatID == 0 {
		missing = append(missing, "chat")
	}
	if len(c.Groups) == 0 {
		missing = append(missing, "groups")
	}
	if c.LedgerPath == "" {
		missing = append(missing, "dbfile")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required configuration: %v", missing))
	}
	if c.Backend != BackendFile && c.Backend != BackendSQLite {
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q (want %s or %s)", c.Backend, BackendFile, BackendSQLite))
	}
	if c.AdminAddr != "" && c.AdminJWTSecret == "" {
		errs = append(errs, errors.New("ADMIN_JWT_SECRET is required when ADMIN_ADDR is set"))
	}
	if len(c.Groups) > 0 {
		if _, err := models.NewGroupTable(c.Groups); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GroupTable builds the lookup table for the configured groups.
func (c *Config) GroupTable() (*models.GroupTable, error) {
	return models.NewGroupTable(c.Groups)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
