package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// FileName is the optional config file read from the working directory
const FileName = "notegraph.toml"

// EnvPrefix prefixes every environment override, e.g. NOTEGRAPH_POLL_INTERVAL=2s
const EnvPrefix = "NOTEGRAPH_"

// Config holds all configuration for the application
type Config struct {
	// Vault is either a directory or the base URL of a remote vault server
	Vault      string `koanf:"vault"`
	Port       int    `koanf:"port"`
	Watch      bool   `koanf:"watch"`
	ServeVault bool   `koanf:"serve_vault"`
	Report     bool   `koanf:"report"`
	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	JSONLogs   bool   `koanf:"json_logs"`

	Poll     PollConfig     `koanf:"poll"`
	Undo     UndoConfig     `koanf:"undo"`
	Suppress SuppressConfig `koanf:"suppress"`
	Breaker  BreakerConfig  `koanf:"breaker"`
}

type PollConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type UndoConfig struct {
	Capacity int `koanf:"capacity"`
}

// SuppressConfig controls how long polling stays quiet after an undo or redo
type SuppressConfig struct {
	Cooldown time.Duration `koanf:"cooldown"`
}

// BreakerConfig controls the circuit breaker in front of a remote vault
type BreakerConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"vault":       ".",
		"port":        8080,
		"watch":       true,
		"serve_vault": false,
		"report":      false,
		"verbosity":   "",
		"verbose":     0,
		"json_logs":   false,
		"poll":        map[string]interface{}{"interval": "1s"},
		"undo":        map[string]interface{}{"capacity": 50},
		"suppress":    map[string]interface{}{"cooldown": "1500ms"},
		"breaker":     map[string]interface{}{"timeout": "30s"},
	}
}

// FlagKey maps a command-line flag name to its config key:
// --poll-interval sets poll.interval, --serve-vault sets serve_vault.
func FlagKey(name string) string {
	for _, section := range []string{"poll", "undo", "suppress", "breaker"} {
		if rest, ok := strings.CutPrefix(name, section+"-"); ok {
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(f, FileName)
}

// LoadFile is Load with an explicit config file path. A missing file is not an error.
func LoadFile(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	if path != "" {
		_ = k.Load(file.Provider(path), toml.Parser())
	}

	// 3. Environment Variables
	// Single underscores separate sections; double underscores stand for a literal one,
	// so NOTEGRAPH_SERVE__VAULT maps to serve_vault.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		p := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return FlagKey(fl.Name), posflag.FlagVal(f, fl)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "__", "\x00")
	s = strings.ReplaceAll(s, "_", ".")
	return strings.ReplaceAll(s, "\x00", "_")
}

// Validate rejects values the session cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Vault == "" {
		errs = append(errs, errors.New("vault must not be empty"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Undo.Capacity < 1 {
		errs = append(errs, fmt.Errorf("undo.capacity must be at least 1, got %d", c.Undo.Capacity))
	}
	if c.Suppress.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("suppress.cooldown must not be negative, got %s", c.Suppress.Cooldown))
	}
	if c.Breaker.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("breaker.timeout must be positive, got %s", c.Breaker.Timeout))
	}
	if c.ServeVault && IsRemote(c.Vault) {
		errs = append(errs, errors.New("serve_vault requires a local vault directory"))
	}
	return errors.Join(errs...)
}

// IsRemote reports whether the vault setting names an HTTP vault server
func IsRemote(vault string) bool {
	return strings.HasPrefix(vault, "http://") || strings.HasPrefix(vault, "https://")
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
