package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/wnft/pkg/cache"
	"github.com/matzehuels/wnft/pkg/render/raster"
	"github.com/matzehuels/wnft/pkg/typography"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Cache.Backend != CacheFile || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.HTTP.AllowPrivateHosts {
		t.Error("private hosts must be blocked by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "wnft.toml", `
[server]
addr = ":9090"

[http]
timeout = "3s"
allow_private_hosts = true

[cache]
backend = "none"
ttl = "30m"

[render]
rasterizer = "rsvg"
rsvg_command = "/opt/bin/rsvg-convert"

[title.scale]
largest = 160

[title.table.with_image]
overflow = "smallest"
thresholds = [
  { max_length = 20, size = "medium" },
  { max_length = 60, size = "small" },
]

[title.table.without_image]
overflow = "small"
thresholds = [{ max_length = 30, size = "largest" }]
`)
	cfg, err := Loader{Path: path, LookupEnv: env(nil)}.Load()
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.HTTP.Timeout != 3*time.Second || !cfg.HTTP.AllowPrivateHosts {
		t.Errorf("decoded = %+v / %+v", cfg.Server, cfg.HTTP)
	}
	if cfg.Cache.Backend != CacheNone || cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout)
	}

	sizer, err := cfg.Sizer()
	if err != nil {
		t.Fatal(err)
	}
	if got := sizer.Size(true, 15); got != typography.Medium {
		t.Errorf("with image, 15 chars = %s, want medium", got)
	}
	if got := sizer.Pixels(false, 10); got != 160 {
		t.Errorf("largest = %v px, want 160", got)
	}

	rz, err := cfg.Rasterizer()
	if err != nil {
		t.Fatal(err)
	}
	if rs, ok := rz.(raster.Rsvg); !ok || rs.Command != "/opt/bin/rsvg-convert" {
		t.Errorf("rasterizer = %#v", rz)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		want string
	}{
		{"unknown key", "[server]\nport = 1\n", "unknown keys: server.port"},
		{"bad syntax", "[server\n", "parse config"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n", "unknown backend"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n", "redis_addr"},
		{"mongo without db", "[cache]\nbackend = \"mongo\"\nmongo_uri = \"mongodb://x\"\n", "mongo_database"},
		{"bad rasterizer", "[render]\nrasterizer = \"cairo\"\n", "unknown rasterizer"},
		{"growing title", "[title.table.with_image]\noverflow = \"largest\"\nthresholds = [{ max_length = 5, size = \"small\" }]\n", "title"},
		{"bad size name", "[title.scale]\nhuge = 200\n", "invalid title size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "wnft.toml", tt.toml)
			_, err := Loader{Path: path, LookupEnv: env(nil)}.Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	if _, err := (Loader{Path: missing, LookupEnv: env(nil)}).Load(); err == nil {
		t.Error("an explicit config path must exist")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := (Loader{LookupEnv: env(nil)}).Load(); err != nil {
		t.Errorf("missing default config should be ignored: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "wnft.toml", "[server]\naddr = \":9090\"\n")
	dotenv := writeFile(t, ".env", "WNFT_SERVER_ADDR=:7070\nWNFT_CACHE_BACKEND=none\nWNFT_HTTP_TIMEOUT=2s\n")

	cfg, err := Loader{
		Path:    path,
		EnvFile: dotenv,
		LookupEnv: env(map[string]string{
			"WNFT_SERVER_ADDR":              ":6060",
			"WNFT_HTTP_ALLOW_PRIVATE_HOSTS": "true",
			"WNFT_REDIS_DB":                 "2",
		}),
	}.Load()
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	// Process environment beats dotenv, dotenv beats the file.
	if cfg.Server.Addr != ":6060" {
		t.Errorf("addr = %q, want :6060", cfg.Server.Addr)
	}
	if cfg.Cache.Backend != CacheNone || cfg.HTTP.Timeout != 2*time.Second {
		t.Errorf("dotenv values not applied: %+v %+v", cfg.Cache, cfg.HTTP)
	}
	if !cfg.HTTP.AllowPrivateHosts || cfg.Cache.RedisDB != 2 {
		t.Errorf("env values not applied: %+v", cfg)
	}
}

func TestEnvErrors(t *testing.T) {
	for _, kv := range [][2]string{
		{"WNFT_HTTP_TIMEOUT", "soon"},
		{"WNFT_HTTP_ALLOW_PRIVATE_HOSTS", "maybe"},
		{"WNFT_REDIS_DB", "two"},
	} {
		t.Run(kv[0], func(t *testing.T) {
			_, err := Loader{Path: writeFile(t, "c.toml", ""), LookupEnv: env(map[string]string{kv[0]: kv[1]})}.Load()
			if err == nil || !strings.Contains(err.Error(), kv[0]) {
				t.Errorf("error = %v, want it to name %s", err, kv[0])
			}
		})
	}
}

func TestBuild(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Prefix = "test:"

	comps, err := cfg.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	defer comps.Close()

	if _, ok := comps.Cache.(*cache.FileCache); !ok {
		t.Errorf("cache = %T, want *cache.FileCache", comps.Cache)
	}
	if comps.Runner == nil || comps.Gatekeeper == nil || comps.Client == nil {
		t.Fatal("missing components")
	}
	if comps.Runner.Gatekeeper != comps.Gatekeeper {
		t.Error("runner must use the configured gatekeeper")
	}
}

func TestBuildBadFonts(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = CacheNone
	cfg.Fonts.Regular = filepath.Join(t.TempDir(), "missing.ttf")
	if _, err := cfg.Build(context.Background(), nil); err == nil {
		t.Error("expected font load error")
	}
}

func TestOpenCacheNone(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = CacheNone
	c, err := cfg.OpenCache(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("cache = %T, want NullCache", c)
	}
}
