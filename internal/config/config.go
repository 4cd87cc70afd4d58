// Package config loads wnft settings.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file (--config, or the default path when it exists)
//  3. a dotenv file (".env" in the working directory when it exists)
//  4. WNFT_* process environment variables
//  5. command-line flags, applied by the caller
//
// A minimal file:
//
//	[server]
//	addr = ":8080"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "30m"
//
//	[title.scale]
//	largest = 160
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/wnft/pkg/buildinfo"
	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/httputil"
	"github.com/matzehuels/wnft/pkg/render/raster"
	"github.com/matzehuels/wnft/pkg/typography"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "WNFT_"

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheMongo = "mongo"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	HTTP      HTTPConfig      `toml:"http"`
	Cache     CacheConfig     `toml:"cache"`
	Render    RenderConfig    `toml:"render"`
	Fonts     fonts.Config    `toml:"fonts"`
	Graphemes GraphemesConfig `toml:"graphemes"`
	Title     TitleConfig     `toml:"title"`
}

// ServerConfig configures `wnft serve`.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// HTTPConfig configures the image client.
type HTTPConfig struct {
	Timeout           time.Duration `toml:"timeout"`
	UserAgent         string        `toml:"user_agent"`
	AllowPrivateHosts bool          `toml:"allow_private_hosts"`
	RetryAttempts     int           `toml:"retry_attempts"`
}

// CacheConfig selects and configures the probe cache.
type CacheConfig struct {
	Backend         string        `toml:"backend"`
	Dir             string        `toml:"dir"`
	TTL             time.Duration `toml:"ttl"`
	Prefix          string        `toml:"prefix"`
	RedisAddr       string        `toml:"redis_addr"`
	RedisPassword   string        `toml:"redis_password"`
	RedisDB         int           `toml:"redis_db"`
	MongoURI        string        `toml:"mongo_uri"`
	MongoDatabase   string        `toml:"mongo_database"`
	MongoCollection string        `toml:"mongo_collection"`
}

// RenderConfig selects the rasterizer.
type RenderConfig struct {
	Rasterizer  string `toml:"rasterizer"`
	RsvgCommand string `toml:"rsvg_command"`
}

// GraphemesConfig points at a substitution table. Empty uses the bundled one.
type GraphemesConfig struct {
	Path string `toml:"path"`
}

// TitleConfig overrides the title sizing policy. Nil or empty fields keep
// the built-in values.
type TitleConfig struct {
	Table *typography.Table  `toml:"table"`
	Scale map[string]float64 `toml:"scale"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:       httputil.DefaultTimeout,
			UserAgent:     buildinfo.UserAgent(),
			RetryAttempts: 3,
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     gatekeeper.DefaultProbeTTL,
		},
		Render: RenderConfig{
			Rasterizer: raster.BackendNative,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/wnft/config.toml, falling back to
// ~/.config/wnft/config.toml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wnft", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wnft", "config.toml"), nil
}

// Loader describes where configuration comes from.
type Loader struct {
	// Path is the TOML file. It must exist when set; when empty the default
	// path is read if present.
	Path string
	// EnvFile is a dotenv file read if present. Its values never override
	// the process environment.
	EnvFile string
	// LookupEnv reads the environment; os.LookupEnv when nil.
	LookupEnv func(string) (string, bool)
}

// Load is Loader{Path: path, EnvFile: ".env"}.Load().
func Load(path string) (*Config, error) {
	return Loader{Path: path, EnvFile: ".env"}.Load()
}

// Load applies every layer and validates the result.
func (l Loader) Load() (*Config, error) {
	cfg := Default()

	path, required := l.Path, l.Path != ""
	if !required {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if l.EnvFile != "" {
		dotenv, err := godotenv.Read(l.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", l.EnvFile, err)
		}
		lookup = layered(lookup, dotenv)
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("parse config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// layered prefers the process environment over dotenv values.
func layered(env func(string) (string, bool), dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := env(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
}

// envVar binds one WNFT_* variable to a field.
type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *field(c) = v; return nil }
}

func dur(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func boolean(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func integer(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

var envVars = []envVar{
	{"SERVER_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"HTTP_TIMEOUT", dur(func(c *Config) *time.Duration { return &c.HTTP.Timeout })},
	{"HTTP_USER_AGENT", str(func(c *Config) *string { return &c.HTTP.UserAgent })},
	{"HTTP_ALLOW_PRIVATE_HOSTS", boolean(func(c *Config) *bool { return &c.HTTP.AllowPrivateHosts })},
	{"HTTP_RETRY_ATTEMPTS", integer(func(c *Config) *int { return &c.HTTP.RetryAttempts })},
	{"CACHE_BACKEND", str(func(c *Config) *string { return &c.Cache.Backend })},
	{"CACHE_DIR", str(func(c *Config) *string { return &c.Cache.Dir })},
	{"CACHE_TTL", dur(func(c *Config) *time.Duration { return &c.Cache.TTL })},
	{"CACHE_PREFIX", str(func(c *Config) *string { return &c.Cache.Prefix })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.Cache.RedisAddr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.Cache.RedisPassword })},
	{"REDIS_DB", integer(func(c *Config) *int { return &c.Cache.RedisDB })},
	{"MONGO_URI", str(func(c *Config) *string { return &c.Cache.MongoURI })},
	{"MONGO_DATABASE", str(func(c *Config) *string { return &c.Cache.MongoDatabase })},
	{"RASTERIZER", str(func(c *Config) *string { return &c.Render.Rasterizer })},
	{"RSVG_COMMAND", str(func(c *Config) *string { return &c.Render.RsvgCommand })},
	{"FONT_REGULAR", str(func(c *Config) *string { return &c.Fonts.Regular })},
	{"FONT_SEMIBOLD", str(func(c *Config) *string { return &c.Fonts.SemiBold })},
	{"FONT_FALLBACK", str(func(c *Config) *string { return &c.Fonts.Fallback })},
	{"GRAPHEMES", str(func(c *Config) *string { return &c.Graphemes.Path })},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, ev.name, err)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail later, at first use.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache: redis backend needs redis_addr")
		}
	case CacheMongo:
		if c.Cache.MongoURI == "" || c.Cache.MongoDatabase == "" {
			return fmt.Errorf("cache: mongo backend needs mongo_uri and mongo_database")
		}
	default:
		return fmt.Errorf("cache: unknown backend %q (must be one of: none, file, redis, mongo)", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache: ttl must not be negative")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http: timeout must be positive")
	}
	if _, err := raster.New(c.Render.Rasterizer); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := c.Sizer(); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	return nil
}

// Sizer builds the title sizer, merging overrides into the defaults.
func (c *Config) Sizer() (*typography.Sizer, error) {
	table := typography.DefaultTable()
	if c.Title.Table != nil {
		table = *c.Title.Table
	}
	scale := typography.DefaultScale()
	for name, px := range c.Title.Scale {
		ts, err := typography.ParseTitleSize(name)
		if err != nil {
			return nil, err
		}
		scale[ts] = px
	}
	return typography.New(table, scale)
}
