// Package config loads the mosync configuration with Viper.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// an optional dotenv file, and the process environment (MOSYNC_ prefix,
// dots replaced by underscores, e.g. MOSYNC_TARGET_PASSWORD).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tszyrowski/mosync/internal/paths"
	"github.com/tszyrowski/mosync/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "MOSYNC"
)

// keys lists every scalar setting that can come from the environment.
var keys = []string{
	"source.path",
	"source.timestamp_layout",
	"source.timezone",
	"target.driver",
	"target.host",
	"target.port",
	"target.user",
	"target.password",
	"target.database",
	"target.sslmode",
	"target.path",
	"target.schema",
	"target.upsert",
	"watermark.table",
	"watermark.key",
	"connect.retries",
	"connect.delay",
	"trigger.addr",
	"trigger.path",
	"log.level",
	"log.json",
	"log.file",
	"timeout",
}

// defaultConfigYAML is written by WriteDefault. It carries no credentials.
const defaultConfigYAML = `# mosync configuration
# Environment variables (MOSYNC_TARGET_PASSWORD, ...) override these values.

source:
  # path: /path/to/inspection_data.db
  timestamp_layout: "2006-01-02 15:04:05.000000"
  # Zone the updated_at values are written in (IANA name or Local).
  # The watermark is rendered in this zone before comparison.
  timezone: UTC

target:
  driver: postgres
  # host, port, user, password and database are required for postgres.
  # schema: public
  upsert: native

watermark:
  table: sync_metadata
  key: 1

timeout: 20s

tables:
  - name: sides
    columns: [id, side_name]
  - name: questions
    columns: [id, side_id, question]
  - name: users
    columns: [id, username, password]
`

// Options selects the files to layer under the environment.
type Options struct {
	// ConfigFile is an explicit YAML file. It must exist when set.
	ConfigFile string
	// ConfigDir is searched for config.yaml and .env when ConfigFile or
	// EnvFile are empty. Missing files there are not an error.
	ConfigDir string
	// EnvFile is an explicit dotenv file. It must exist when set.
	EnvFile string
}

// EnvName returns the environment variable for a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load resolves, validates and returns the configuration. Missing mandatory
// fields yield a *types.ConfigurationError.
func Load(opts Options) (types.Config, error) {
	cfg, err := Resolve(opts)
	if err != nil {
		return types.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Resolve layers every source and applies defaults without validating, for
// commands that only need part of the configuration.
func Resolve(opts Options) (types.Config, error) {
	v, err := newViper(opts)
	if err != nil {
		return types.Config{}, err
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, &types.ConfigurationError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	return cfg.WithDefaults(), nil
}

func newViper(opts Options) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}
	if err := mergeEnvFile(v, opts); err != nil {
		return nil, err
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	if p, err := paths.DefaultSourcePath(); err == nil {
		v.SetDefault("source.path", p)
	}
	v.SetDefault("source.timestamp_layout", types.DefaultTimestampLayout)
	v.SetDefault("target.driver", types.DriverPostgres)
	v.SetDefault("target.upsert", types.UpsertNative)
	v.SetDefault("watermark.table", types.DefaultWatermarkTable)
	v.SetDefault("watermark.key", types.DefaultWatermarkKey)
	v.SetDefault("connect.retries", types.DefaultConnectRetries)
	v.SetDefault("connect.delay", types.DefaultConnectDelay)
	v.SetDefault("trigger.addr", types.DefaultTriggerAddr)
	v.SetDefault("trigger.path", types.DefaultTriggerPath)
	v.SetDefault("log.level", "info")
	v.SetDefault("timeout", types.DefaultTimeout)
}

func readConfigFile(v *viper.Viper, opts Options) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
		return nil
	}
	if opts.ConfigDir == "" {
		return nil
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(opts.ConfigDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// mergeEnvFile layers a dotenv file between the config file and the process
// environment: a key set in the environment is never replaced.
func mergeEnvFile(v *viper.Viper, opts Options) error {
	path := opts.EnvFile
	if path == "" {
		if opts.ConfigDir == "" {
			return nil
		}
		path = filepath.Join(opts.ConfigDir, paths.EnvFileName)
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for _, k := range keys {
		name := EnvName(k)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if val := ev.GetString(strings.ToLower(name)); val != "" {
			v.Set(k, val)
		}
	}
	return nil
}

// WriteDefault creates dir and a default config.yaml inside it unless the
// file already exists. It returns the file path.
func WriteDefault(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, paths.ConfigFileName)
	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("write config file: %w", err)
	}
	return path, nil
}

const redacted = "********"

// Dump renders cfg as YAML with the target password masked.
func Dump(cfg types.Config) ([]byte, error) {
	if cfg.Target.Password != "" {
		cfg.Target.Password = redacted
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
