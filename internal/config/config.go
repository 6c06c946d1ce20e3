// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies this server instance in logs.
	Name string `mapstructure:"name"`
	// Mode is the server operation mode: "standalone" or "headless".
	// A headless server runs no interactive front ends (gRPC only).
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled selects PostgreSQL persistence; when false accounts and battle
	// reports are kept in memory for the life of the process.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     hostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
func (t TelnetConfig) Addr() string {
	return hostPort(t.Host, t.Port)
}

// HTTPConfig holds the web front end (REST + websocket) settings.
type HTTPConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
func (h HTTPConfig) Addr() string {
	return hostPort(h.Host, h.Port)
}

// GRPCConfig holds the arena gRPC service settings.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" gRPC address.
func (g GRPCConfig) Addr() string {
	return hostPort(g.Host, g.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// CombatConfig holds the combat simulator tuning.
type CombatConfig struct {
	// TickInterval is the wall-clock length of one simulator tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// AITurnEvery is the number of ticks between enemy turns.
	AITurnEvery int `mapstructure:"ai_turn_every"`
	// HeroManaRegen is the mana the hero regains per tick.
	HeroManaRegen int `mapstructure:"hero_mana_regen"`
	// EnemyManaRegen is the mana each enemy regains per tick.
	EnemyManaRegen int `mapstructure:"enemy_mana_regen"`
	// AbilityVariance is the width of the damage roll added to hero abilities.
	AbilityVariance int `mapstructure:"ability_variance"`
	// EnemyVariance is the width of the damage roll added to enemy abilities.
	EnemyVariance int `mapstructure:"enemy_variance"`
	// TimeLimitTicks ends a battle as a defeat after this many ticks; 0 disables.
	TimeLimitTicks int `mapstructure:"time_limit_ticks"`
	// LogCapacity is the number of events each session retains.
	LogCapacity int `mapstructure:"log_capacity"`
	// CritChance is the percent chance of a critical hit; 0 disables them.
	CritChance int `mapstructure:"crit_chance"`
	// CritMultiplier scales critical damage.
	CritMultiplier float64 `mapstructure:"crit_multiplier"`
	// Seed selects a deterministic dice source when non-zero.
	Seed int64 `mapstructure:"seed"`
}

// CatalogConfig selects where hero and enemy templates are loaded from.
type CatalogConfig struct {
	// Dir is a directory of YAML templates; empty uses the built-in catalog.
	Dir string `mapstructure:"dir"`
	// Watch reloads Dir when its files change.
	Watch bool `mapstructure:"watch"`
	// ScriptDir holds Lua enemy AI scripts; empty disables scripted AI.
	ScriptDir string `mapstructure:"script_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// issues accumulates violations across every section.
type issues []error

func (is *issues) check(ok bool, format string, args ...any) {
	if !ok {
		*is = append(*is, fmt.Errorf(format, args...))
	}
}

func (is *issues) port(key string, p int) {
	is.check(p >= 1 && p <= 65535, "%s must be 1-65535, got %d", key, p)
}

func oneOf(v string, allowed ...string) bool { return slices.Contains(allowed, v) }

// Validate checks all configuration invariants. Sections whose Enabled flag is
// off are not checked.
//
// Postcondition: Returns nil, or an error wrapping ErrInvalid that lists every
// violation.
func (c Config) Validate() error {
	var is issues

	is.check(oneOf(c.Server.Mode, "standalone", "headless"),
		"server.mode must be one of [standalone, headless], got %q", c.Server.Mode)
	is.check(c.Server.Name != "", "server.name must not be empty")

	if d := c.Database; d.Enabled {
		is.check(d.Host != "", "database.host must not be empty")
		is.port("database.port", d.Port)
		is.check(d.User != "", "database.user must not be empty")
		is.check(d.Name != "", "database.name must not be empty")
		is.check(oneOf(d.SSLMode, "disable", "require", "verify-ca", "verify-full"),
			"database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode)
		is.check(d.MaxConns >= 1, "database.max_conns must be >= 1, got %d", d.MaxConns)
		is.check(d.MinConns >= 0 && d.MinConns <= d.MaxConns,
			"database.min_conns must be within [0, max_conns], got %d", d.MinConns)
	}
	if t := c.Telnet; t.Enabled {
		is.port("telnet.port", t.Port)
		is.check(t.ReadTimeout >= 0 && t.WriteTimeout >= 0, "telnet timeouts must not be negative")
	}
	if h := c.HTTP; h.Enabled {
		is.port("http.port", h.Port)
		is.check(h.ReadTimeout >= 0 && h.WriteTimeout >= 0, "http timeouts must not be negative")
	}
	if g := c.GRPC; g.Enabled {
		is.check(g.Host != "", "grpc.host must not be empty")
		is.port("grpc.port", g.Port)
	}

	is.check(oneOf(c.Logging.Level, "debug", "info", "warn", "error"),
		"logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level)
	is.check(oneOf(c.Logging.Format, "json", "console"),
		"logging.format must be one of [json, console], got %q", c.Logging.Format)

	cb := c.Combat
	is.check(cb.TickInterval > 0, "combat.tick_interval must be > 0, got %s", cb.TickInterval)
	is.check(cb.AITurnEvery >= 1, "combat.ai_turn_every must be >= 1, got %d", cb.AITurnEvery)
	is.check(cb.HeroManaRegen >= 0 && cb.EnemyManaRegen >= 0, "combat mana regeneration must not be negative")
	is.check(cb.AbilityVariance >= 0 && cb.EnemyVariance >= 0, "combat variance must not be negative")
	is.check(cb.TimeLimitTicks >= 0, "combat.time_limit_ticks must be >= 0, got %d", cb.TimeLimitTicks)
	is.check(cb.LogCapacity >= 1, "combat.log_capacity must be >= 1, got %d", cb.LogCapacity)
	is.check(cb.CritChance >= 0 && cb.CritChance <= 100, "combat.crit_chance must be within 0..100, got %d", cb.CritChance)
	is.check(cb.CritChance == 0 || cb.CritMultiplier >= 1, "combat.crit_multiplier must be >= 1, got %g", cb.CritMultiplier)

	is.check(!c.Catalog.Watch || c.Catalog.Dir != "", "catalog.watch requires catalog.dir")

	if len(is) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(is...))
}

// Load layers defaults, the YAML file at path and ARENA_* environment
// variables (ARENA_COMBAT_SEED overrides combat.seed), then validates.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := Defaults()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated with every default value and no file.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// defaults holds every key Load falls back to when neither the file nor the
// environment sets it.
var defaults = map[string]any{
	"server.name": "arena",
	"server.mode": "standalone",

	"database.enabled":           false,
	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "arena",
	"database.password":          "arena",
	"database.name":              "arena",
	"database.sslmode":           "disable",
	"database.max_conns":         10,
	"database.min_conns":         2,
	"database.max_conn_lifetime": "1h",

	"telnet.enabled":       true,
	"telnet.host":          "0.0.0.0",
	"telnet.port":          4000,
	"telnet.read_timeout":  "10m",
	"telnet.write_timeout": "30s",

	"http.enabled":       true,
	"http.host":          "0.0.0.0",
	"http.port":          8080,
	"http.read_timeout":  "15s",
	"http.write_timeout": "15s",

	"grpc.enabled": true,
	"grpc.host":    "127.0.0.1",
	"grpc.port":    50051,

	"logging.level":  "info",
	"logging.format": "json",

	"combat.tick_interval":    "1s",
	"combat.ai_turn_every":    3,
	"combat.hero_mana_regen":  2,
	"combat.enemy_mana_regen": 1,
	"combat.ability_variance": 10,
	"combat.enemy_variance":   8,
	"combat.time_limit_ticks": 180,
	"combat.log_capacity":     100,
	"combat.crit_chance":      0,
	"combat.crit_multiplier":  1.5,
	"combat.seed":             0,

	"catalog.dir":        "",
	"catalog.watch":      false,
	"catalog.script_dir": "",
}

func setDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}
