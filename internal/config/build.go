package config

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wnft/pkg/cache"
	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/graphemes"
	"github.com/matzehuels/wnft/pkg/httputil"
	"github.com/matzehuels/wnft/pkg/pipeline"
	"github.com/matzehuels/wnft/pkg/render/raster"
)

// Components are the long-lived collaborators built from a Config.
type Components struct {
	Client     *httputil.Client
	Cache      cache.Cache
	Gatekeeper *gatekeeper.Gatekeeper
	Runner     *pipeline.Runner
}

// Close releases the cache backend.
func (c *Components) Close() error {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Close()
}

// OpenCache connects the configured probe cache backend.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case CacheFile:
		fc, err := cache.NewFileCache(c.Cache.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case CacheRedis:
		rc, err := cache.DialRedis(ctx, cache.RedisOptions{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	case CacheMongo:
		mc, err := cache.DialMongo(ctx, cache.MongoOptions{
			URI:        c.Cache.MongoURI,
			Database:   c.Cache.MongoDatabase,
			Collection: c.Cache.MongoCollection,
		})
		if err != nil {
			return nil, err
		}
		return mc, nil
	}
	return cache.NewNullCache(), nil
}

// NewClient builds the image HTTP client.
func (c *Config) NewClient() *httputil.Client {
	return httputil.NewClient(httputil.Options{
		Timeout:       c.HTTP.Timeout,
		UserAgent:     c.HTTP.UserAgent,
		BlockPrivate:  !c.HTTP.AllowPrivateHosts,
		RetryAttempts: c.HTTP.RetryAttempts,
	})
}

// Rasterizer builds the configured PNG backend.
func (c *Config) Rasterizer() (raster.Rasterizer, error) {
	r, err := raster.New(c.Render.Rasterizer)
	if err != nil {
		return nil, err
	}
	if rs, ok := r.(raster.Rsvg); ok && c.Render.RsvgCommand != "" {
		rs.Command = c.Render.RsvgCommand
		return rs, nil
	}
	return r, nil
}

// Glyphs loads the grapheme substitution table.
func (c *Config) Glyphs() (*graphemes.Table, error) {
	if c.Graphemes.Path == "" {
		return graphemes.Default(), nil
	}
	return graphemes.Load(c.Graphemes.Path)
}

// Build wires every collaborator. A cache that cannot be reached is an
// error; callers that prefer to degrade should set the backend to none.
func (c *Config) Build(ctx context.Context, logger *log.Logger) (*Components, error) {
	if logger == nil {
		logger = log.Default()
	}
	sizer, err := c.Sizer()
	if err != nil {
		return nil, fmt.Errorf("title: %w", err)
	}
	fontSet := fonts.Default()
	if c.Fonts != (fonts.Config{}) {
		if fontSet, err = fonts.Load(c.Fonts); err != nil {
			return nil, err
		}
	}
	glyphs, err := c.Glyphs()
	if err != nil {
		return nil, fmt.Errorf("graphemes: %w", err)
	}
	rz, err := c.Rasterizer()
	if err != nil {
		return nil, err
	}
	store, err := c.OpenCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", c.Cache.Backend, err)
	}
	logger.Debug("opened probe cache", "backend", c.Cache.Backend)

	client := c.NewClient()
	gk := gatekeeper.New(client, gatekeeper.Options{
		Cache:             store,
		Keyer:             cache.NewScopedKeyer(nil, c.Cache.Prefix),
		CacheTTL:          c.Cache.TTL,
		Timeout:           c.HTTP.Timeout,
		AllowPrivateHosts: c.HTTP.AllowPrivateHosts,
		Logger:            logger,
	})
	runner := pipeline.NewRunner(
		pipeline.WithLogger(logger),
		pipeline.WithCanvas(card.DefaultCanvas()),
		pipeline.WithGatekeeper(gk),
		pipeline.WithImages(client),
		pipeline.WithSizer(sizer),
		pipeline.WithFonts(fontSet),
		pipeline.WithGraphemes(glyphs),
		pipeline.WithRasterizer(rz),
	)
	return &Components{Client: client, Cache: store, Gatekeeper: gk, Runner: runner}, nil
}
