package types

import (
	"fmt"
	"time"
)

// Supported target drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Upsert modes for the applier.
const (
	// UpsertNative merges with a single INSERT ... ON CONFLICT statement.
	UpsertNative = "native"
	// UpsertCheck runs an existence check then UPDATE or INSERT inside one
	// transaction, for engines without native upsert.
	UpsertCheck = "check"
)

// Defaults applied by Config.WithDefaults.
const (
	DefaultTimeout         = 20 * time.Second
	DefaultWatermarkTable  = "sync_metadata"
	DefaultWatermarkKey    = int64(1)
	DefaultTimestampLayout = "2006-01-02 15:04:05.000000"
	DefaultConnectRetries  = 3
	DefaultConnectDelay    = time.Second
	DefaultPostgresPort    = 5432
	DefaultSSLMode         = "disable"
	DefaultTriggerAddr     = "127.0.0.1:10000"
	DefaultTriggerPath     = "/trigger-sync"
)

// Config holds everything a run needs. Credentials have no defaults.
type Config struct {
	Source    SourceConfig    `json:"source" yaml:"source" mapstructure:"source"`
	Target    TargetConfig    `json:"target" yaml:"target" mapstructure:"target"`
	Tables    Registry        `json:"tables" yaml:"tables" mapstructure:"tables"`
	Watermark WatermarkConfig `json:"watermark" yaml:"watermark" mapstructure:"watermark"`
	Connect   ConnectConfig   `json:"connect" yaml:"connect" mapstructure:"connect"`
	Trigger   TriggerConfig   `json:"trigger" yaml:"trigger" mapstructure:"trigger"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`

	// Timeout bounds one run.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SourceConfig locates the local SQLite store.
type SourceConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// TimestampLayout formats the watermark for comparison against the
	// source's change indicator values.
	TimestampLayout string `json:"timestamp_layout" yaml:"timestamp_layout" mapstructure:"timestamp_layout"`
	// Timezone is the IANA zone the change indicators are stamped in, or
	// "Local". Empty means UTC.
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
}

// Location resolves Timezone.
func (s SourceConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("source.timezone: %w", err)
	}
	return loc, nil
}

// TargetConfig holds the central database connection parameters.
type TargetConfig struct {
	Driver   string `json:"driver" yaml:"driver" mapstructure:"driver"`
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	User     string `json:"user" yaml:"user" mapstructure:"user"`
	Password string `json:"-" yaml:"password" mapstructure:"password"`
	Database string `json:"database" yaml:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" yaml:"sslmode" mapstructure:"sslmode"`
	// Path is the database file for the sqlite driver.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// Schema qualifies every target table name when set.
	Schema string `json:"schema" yaml:"schema" mapstructure:"schema"`
	Upsert string `json:"upsert" yaml:"upsert" mapstructure:"upsert"`
}

// WatermarkConfig names the single-row watermark table and its key.
type WatermarkConfig struct {
	Table string `json:"table" yaml:"table" mapstructure:"table"`
	// Key is the sync_id of the watermark row. Nil means DefaultWatermarkKey;
	// zero is a valid key.
	Key *int64 `json:"key" yaml:"key" mapstructure:"key"`
}

// ID returns the configured key, or DefaultWatermarkKey when unset.
func (w WatermarkConfig) ID() int64 {
	if w.Key == nil {
		return DefaultWatermarkKey
	}
	return *w.Key
}

// ConnectConfig controls connection attempts.
type ConnectConfig struct {
	Retries int           `json:"retries" yaml:"retries" mapstructure:"retries"`
	Delay   time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// TriggerConfig configures the HTTP trigger.
type TriggerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	JSON  bool   `json:"json" yaml:"json" mapstructure:"json"`
	File  string `json:"file" yaml:"file" mapstructure:"file"`
}

// WithDefaults returns a copy with every non-credential default filled in.
func (c Config) WithDefaults() Config {
	if len(c.Tables) == 0 {
		c.Tables = DefaultRegistry()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Source.TimestampLayout == "" {
		c.Source.TimestampLayout = DefaultTimestampLayout
	}
	if c.Target.Driver == "" {
		c.Target.Driver = DriverPostgres
	}
	if c.Target.Driver == DriverPostgres {
		if c.Target.Port == 0 {
			c.Target.Port = DefaultPostgresPort
		}
		if c.Target.SSLMode == "" {
			c.Target.SSLMode = DefaultSSLMode
		}
	}
	if c.Target.Upsert == "" {
		c.Target.Upsert = UpsertNative
	}
	if c.Watermark.Table == "" {
		c.Watermark.Table = DefaultWatermarkTable
	}
	if c.Watermark.Key == nil {
		key := DefaultWatermarkKey
		c.Watermark.Key = &key
	}
	if c.Connect.Retries <= 0 {
		c.Connect.Retries = DefaultConnectRetries
	}
	if c.Connect.Delay <= 0 {
		c.Connect.Delay = DefaultConnectDelay
	}
	if c.Trigger.Addr == "" {
		c.Trigger.Addr = DefaultTriggerAddr
	}
	if c.Trigger.Path == "" {
		c.Trigger.Path = DefaultTriggerPath
	}
	return c
}

// Validate reports every missing mandatory field at once as a
// ConfigurationError. It does not apply defaults.
func (c Config) Validate() error {
	var missing []string
	if c.Source.Path == "" {
		missing = append(missing, "source.path")
	}
	if err := c.Target.validate(&missing); err != nil {
		return err
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	if err := c.Tables.Validate(); err != nil {
		return &ConfigurationError{Reason: fmt.Sprintf("tables: %v", err)}
	}
	if _, err := c.Source.Location(); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}
	if c.Watermark.Table != "" && !ValidIdentifier(c.Watermark.Table) {
		return &ConfigurationError{Reason: fmt.Sprintf("watermark.table %q is not a valid identifier", c.Watermark.Table)}
	}
	return nil
}

// ValidateSource checks only the fields needed to open the source store.
func (c Config) ValidateSource() error {
	if c.Source.Path == "" {
		return &ConfigurationError{Missing: []string{"source.path"}}
	}
	return nil
}

// ValidateTarget checks only the fields needed to open the target store.
func (c Config) ValidateTarget() error {
	var missing []string
	if err := c.Target.validate(&missing); err != nil {
		return err
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func (t TargetConfig) validate(missing *[]string) error {
	switch t.Driver {
	case DriverPostgres:
		required := []struct {
			key   string
			empty bool
		}{
			{"target.host", t.Host == ""},
			{"target.port", t.Port == 0},
			{"target.user", t.User == ""},
			{"target.password", t.Password == ""},
			{"target.database", t.Database == ""},
		}
		for _, r := range required {
			if r.empty {
				*missing = append(*missing, r.key)
			}
		}
	case DriverSQLite:
		if t.Path == "" {
			*missing = append(*missing, "target.path")
		}
	case "":
		*missing = append(*missing, "target.driver")
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown target driver %q", t.Driver)}
	}
	if t.Schema != "" && !ValidIdentifier(t.Schema) {
		return &ConfigurationError{Reason: fmt.Sprintf("target.schema %q is not a valid identifier", t.Schema)}
	}
	switch t.Upsert {
	case "", UpsertNative, UpsertCheck:
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown upsert mode %q", t.Upsert)}
	}
	return nil
}
