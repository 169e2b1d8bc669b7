package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrMissingConfig is returned when a configuration key has no value.
var ErrMissingConfig = errors.New("missing configuration")

// Config holds the runtime configuration. It is passed explicitly to every
// connection and statement; there is no package-level instance.
type Config struct {
	Driver            string `toml:"driver"`
	DefaultSchema     string `toml:"default_schema"`
	DefaultDatabase   string `toml:"default_database"`
	Logging           bool   `toml:"logging"`
	ValidateSQLSyntax bool   `toml:"validate_sql_syntax"`
	DryRun            bool   `toml:"dry_run"`
	DateFormat        string `toml:"date_format"`
	AdminToken        string `toml:"admin_token"`

	// LogTable, when set, receives one row per executed statement.
	LogTable string `toml:"log_table"`

	// Credentials maps DATABASE -> SCHEMA -> password.
	Credentials map[string]map[string]string `toml:"credentials"`
	// Connections maps DATABASE -> network descriptor.
	Connections map[string]string `toml:"connections"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Driver:      DefaultDriver,
		DateFormat:  DefaultDateLayout,
		Credentials: make(map[string]map[string]string),
		Connections: make(map[string]string),
	}
}

// Load reads a TOML configuration file.
func Load(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Parse decodes TOML configuration from a string.
func Parse(data string) (*Config, error) {
	cfg := New()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize upper-cases lookup keys and fills empty defaults.
func (c *Config) normalize() {
	if c.Driver == "" {
		c.Driver = DefaultDriver
	}
	if c.DateFormat == "" {
		c.DateFormat = DefaultDateLayout
	}
	c.DefaultSchema = strings.ToUpper(c.DefaultSchema)
	c.DefaultDatabase = strings.ToUpper(c.DefaultDatabase)

	creds := make(map[string]map[string]string, len(c.Credentials))
	for db, schemas := range c.Credentials {
		m := make(map[string]string, len(schemas))
		for schema, pw := range schemas {
			m[strings.ToUpper(schema)] = pw
		}
		creds[strings.ToUpper(db)] = m
	}
	c.Credentials = creds

	conns := make(map[string]string, len(c.Connections))
	for db, desc := range c.Connections {
		conns[strings.ToUpper(db)] = desc
	}
	c.Connections = conns
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (any, error) {
	var v any
	switch key {
	case KeyDriver:
		v = c.Driver
	case KeyDefaultSchema:
		v = c.DefaultSchema
	case KeyDefaultDatabase:
		v = c.DefaultDatabase
	case KeyLogging:
		return c.Logging, nil
	case KeyValidateSQLSyntax:
		return c.ValidateSQLSyntax, nil
	case KeyDryRun:
		return c.DryRun, nil
	case KeyDateFormat:
		v = c.DateFormat
	case KeyAdminToken:
		v = c.AdminToken
	case KeyLogTable:
		v = c.LogTable
	case KeyCredentials:
		if len(c.Credentials) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, key)
		}
		return c.Credentials, nil
	case KeyConnections:
		if len(c.Connections) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, key)
		}
		return c.Connections, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, key)
	}
	if v == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, key)
	}
	return v, nil
}

// String returns the string value stored under key, or "" when absent.
func (c *Config) String(key string) string {
	v, err := c.Get(key)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Credential returns the password of schema on database.
func (c *Config) Credential(database, schema string) (string, error) {
	v, err := c.Get(KeyCredentials)
	if err != nil {
		return "", err
	}
	creds := v.(map[string]map[string]string)
	pw, ok := creds[strings.ToUpper(database)][strings.ToUpper(schema)]
	if !ok {
		return "", fmt.Errorf("%w: credentials for %s.%s", ErrMissingConfig, database, schema)
	}
	return pw, nil
}

// Descriptor returns the network descriptor of database.
func (c *Config) Descriptor(database string) (string, error) {
	v, err := c.Get(KeyConnections)
	if err != nil {
		return "", err
	}
	desc, ok := v.(map[string]string)[strings.ToUpper(database)]
	if !ok || desc == "" {
		return "", fmt.Errorf("%w: connection for %s", ErrMissingConfig, database)
	}
	return desc, nil
}
