// Package gatekeeper decides whether a caller-supplied image URL is safe and
// good enough to embed in a card.
//
// A check never fails the card. Every problem turns into an absent
// [Checked] value, and the card falls back to its text-only hero or solid
// avatar. An accepted image has been downloaded and decoded in full; its
// bytes travel with the [Checked] value so the renderer never goes back to
// the network.
// Rejections are logged at debug level and reported to
// observability.Gatekeeper() with a [Reason].
package gatekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wnft/pkg/cache"
	"github.com/matzehuels/wnft/pkg/card"
	apperr "github.com/matzehuels/wnft/pkg/errors"
	"github.com/matzehuels/wnft/pkg/httputil"
	"github.com/matzehuels/wnft/pkg/observability"
)

// Kind names which slot an image is checked for.
type Kind string

const (
	KindFeatured Kind = "featured"
	KindAvatar   Kind = "avatar"
)

// Reason classifies a rejection.
type Reason string

const (
	ReasonInvalidURL      Reason = "invalid_url"
	ReasonFetchFailed     Reason = "fetch_failed"
	ReasonTimeout         Reason = "timeout"
	ReasonUndersized      Reason = "undersized"
	ReasonUnsupportedType Reason = "unsupported_type"
	ReasonUndecodable     Reason = "undecodable"
	ReasonOversized       Reason = "oversized"
)

// AcceptedTypes are the content types a card can embed.
var AcceptedTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/bmp":     true,
	"image/svg+xml": true,
}

// Prober reports the type and size of a remote image.
type Prober interface {
	Probe(ctx context.Context, url string) (httputil.Probe, error)
}

// Fetcher downloads a whole image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Checked is the outcome of a check. The zero value means "no image".
type Checked struct {
	URL         string
	Width       int
	Height      int
	ContentType string
	Data        []byte // verified body; nil when the gatekeeper has no Fetcher
}

// OK reports whether an image was accepted.
func (c Checked) OK() bool { return c.URL != "" }

// Src is the image reference to embed: a data URI of the verified body
// when there is one, else the URL.
func (c Checked) Src() string {
	if c.Data != nil {
		return httputil.DataURI(c.ContentType, c.Data)
	}
	return c.URL
}

// Rejection is the internal IMAGE_REJECTED error carried to logs and hooks.
type Rejection struct {
	Kind   Kind
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s image rejected (%s): %v", r.Kind, r.Reason, r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

// DefaultProbeTTL is how long successful probes are memoized.
const DefaultProbeTTL = time.Hour

// Options configures a Gatekeeper. Zero fields take defaults.
type Options struct {
	Cache             cache.Cache
	Keyer             cache.Keyer
	CacheTTL          time.Duration
	Timeout           time.Duration // bounds one check, cache lookup included
	AllowPrivateHosts bool
	Logger            *log.Logger

	// Fetcher downloads accepted images for verification. When nil and
	// the prober can fetch, the prober is used.
	Fetcher Fetcher

	// MaxPixels rejects images with a larger area. Default
	// card.MaxImagePixels.
	MaxPixels int64
}

// Gatekeeper validates image URLs. It is safe for concurrent use.
type Gatekeeper struct {
	prober    Prober
	fetcher   Fetcher
	maxPixels int64
	cache     cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	timeout time.Duration
	private bool
	logger  *log.Logger
}

// New returns a Gatekeeper using prober for network access.
func New(prober Prober, opts Options) *Gatekeeper {
	g := &Gatekeeper{
		prober:    prober,
		fetcher:   opts.Fetcher,
		maxPixels: opts.MaxPixels,
		cache:     opts.Cache,
		keyer:     opts.Keyer,
		ttl:       opts.CacheTTL,
		timeout:   opts.Timeout,
		private:   opts.AllowPrivateHosts,
		logger:    opts.Logger,
	}
	if f, ok := prober.(Fetcher); ok && g.fetcher == nil {
		g.fetcher = f
	}
	if g.maxPixels <= 0 {
		g.maxPixels = card.MaxImagePixels
	}
	if g.cache == nil {
		g.cache = cache.NewNullCache()
	}
	if g.keyer == nil {
		g.keyer = cache.DefaultKeyer{}
	}
	if g.ttl == 0 {
		g.ttl = DefaultProbeTTL
	}
	if g.timeout <= 0 {
		g.timeout = httputil.DefaultTimeout
	}
	if g.logger == nil {
		g.logger = log.Default()
	}
	return g
}

// Check validates url for kind against the required size. It returns the
// zero Checked on any rejection; the error is never surfaced.
func (g *Gatekeeper) Check(ctx context.Context, kind Kind, url string, required card.Dimensions) Checked {
	if url == "" {
		return Checked{}
	}
	c, rej := g.check(ctx, kind, url, required)
	if ctx.Err() != nil {
		// The caller gave up; this is not a verdict on the image.
		return Checked{}
	}
	if rej != nil {
		g.reject(ctx, url, rej)
		return Checked{}
	}
	g.logger.Debug("image accepted", "kind", kind, "url", url, "size", card.Dimensions{Width: c.Width, Height: c.Height}, "type", c.ContentType)
	observability.Gatekeeper().OnImageAccepted(ctx, string(kind), c.Width, c.Height)
	return c
}

func (g *Gatekeeper) check(ctx context.Context, kind Kind, raw string, required card.Dimensions) (Checked, *Rejection) {
	u, err := apperr.ValidateImageURL(raw)
	if err == nil && !g.private {
		err = apperr.ValidatePublicHost(u)
	}
	if err != nil {
		return Checked{}, &Rejection{Kind: kind, Reason: ReasonInvalidURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	p, err := g.probe(ctx, raw)
	if err != nil {
		return Checked{}, &Rejection{Kind: kind, Reason: classify(err), Err: err}
	}
	if !AcceptedTypes[p.ContentType] {
		return Checked{}, &Rejection{Kind: kind, Reason: ReasonUnsupportedType, Err: fmt.Errorf("content type %q", p.ContentType)}
	}
	got := card.Dimensions{Width: p.Width, Height: p.Height}
	if reason, err := g.fits(got, required); err != nil {
		return Checked{}, &Rejection{Kind: kind, Reason: reason, Err: err}
	}
	c := Checked{URL: raw, Width: p.Width, Height: p.Height, ContentType: p.ContentType}
	if g.fetcher == nil {
		return c, nil
	}
	return g.verify(ctx, kind, c, required)
}

func (g *Gatekeeper) fits(got, required card.Dimensions) (Reason, error) {
	if !got.Covers(required) {
		return ReasonUndersized, fmt.Errorf("%s is smaller than %s", got, required)
	}
	if got.Pixels() > g.maxPixels {
		return ReasonOversized, fmt.Errorf("%s is over %d pixels", got, g.maxPixels)
	}
	return "", nil
}

// probe consults the cache before the prober. Only clean probes are stored,
// so a transient failure is retried on the next card.
func (g *Gatekeeper) probe(ctx context.Context, url string) (httputil.Probe, error) {
	key := g.keyer.ProbeKey(url)
	hooks := observability.Cache()

	if data, hit, err := g.cache.Get(ctx, key); err != nil {
		g.logger.Warn("probe cache read failed", "error", err)
	} else if hit {
		var p httputil.Probe
		if err := json.Unmarshal(data, &p); err == nil {
			hooks.OnCacheHit(ctx, "probe")
			return p, nil
		}
	}
	hooks.OnCacheMiss(ctx, "probe")

	p, err := g.prober.Probe(ctx, url)
	if err != nil {
		return p, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
			g.logger.Warn("probe cache write failed", "error", err)
		} else {
			hooks.OnCacheSet(ctx, "probe", len(data))
		}
	}
	return p, nil
}

func classify(err error) Reason {
	switch {
	case httputil.IsTimeout(err):
		return ReasonTimeout
	case errors.Is(err, httputil.ErrUndecodable):
		return ReasonUndecodable
	case errors.Is(err, httputil.ErrBlockedHost):
		return ReasonInvalidURL
	}
	return ReasonFetchFailed
}

func (g *Gatekeeper) reject(ctx context.Context, url string, rej *Rejection) {
	err := apperr.Wrap(apperr.ErrCodeImageRejected, rej, "image rejected")
	g.logger.Debug("image rejected", "kind", rej.Kind, "url", url, "reason", rej.Reason, "error", rej.Err)
	observability.Gatekeeper().OnImageRejected(ctx, string(rej.Kind), string(rej.Reason), err)
}

// Pair is the joined result of CheckPair.
type Pair struct {
	Featured Checked
	Avatar   Checked
}

// CheckPair checks the featured image and avatar concurrently and waits for
// both. A rejection of one never affects the other. If ctx ends before both
// settle, in-flight probes are cancelled and ctx.Err() is returned.
func (g *Gatekeeper) CheckPair(ctx context.Context, c card.Canvas, featuredURL, avatarURL string) (Pair, error) {
	var pair Pair
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		pair.Featured = g.Check(egctx, KindFeatured, featuredURL, c.FeaturedImage)
		return nil
	})
	eg.Go(func() error {
		pair.Avatar = g.Check(egctx, KindAvatar, avatarURL, c.AvatarImage)
		return nil
	})
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}
	return pair, nil
}
