package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	// Decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	apperr "github.com/matzehuels/wnft/pkg/errors"
	"github.com/matzehuels/wnft/pkg/observability"
)

// Read limits.
const (
	ProbeLimit    = 256 << 10
	ProbeLimitSVG = 1 << 20
	FetchLimit    = 10 << 20
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// Sentinel errors. Callers classify failures with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrNetwork     = errors.New("network error")
	ErrTooLarge    = errors.New("response too large")
	ErrUndecodable = errors.New("undecodable image")
	ErrBlockedHost = errors.New("host resolves to a non-public address")
)

// Probe is what a probe learns about a remote image.
type Probe struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type"`
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration // per request; DefaultTimeout when zero
	UserAgent string
	// BlockPrivate refuses connections to loopback, private and link-local
	// addresses after DNS resolution.
	BlockPrivate bool
	// RetryAttempts and RetryDelay tune backoff; 3 and 1s when zero.
	RetryAttempts int
	RetryDelay    time.Duration
}

// Client probes and fetches images over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
	attempts  int
	delay     time.Duration
}

// NewClient returns a Client with its own transport.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	dialer := &net.Dialer{Timeout: opts.Timeout}
	if opts.BlockPrivate {
		dialer.Control = blockPrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent: opts.UserAgent,
		attempts:  opts.RetryAttempts,
		delay:     opts.RetryDelay,
	}
}

func blockPrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%w: %s", ErrBlockedHost, host)
	}
	return nil
}

// Probe determines the type and pixel size of the image at url.
//
// Non-image responses return a Probe with only ContentType set and a nil
// error, so callers can distinguish "wrong type" from "broken image".
func (c *Client) Probe(ctx context.Context, url string) (Probe, error) {
	var p Probe
	err := Retry(ctx, c.attempts, c.delay, func() error {
		var err error
		p, err = c.probeOnce(ctx, url)
		return err
	})
	return p, coded(ctx, err, "probe %s", url)
}

func (c *Client) probeOnce(ctx context.Context, url string) (Probe, error) {
	resp, err := c.get(ctx, url, fmt.Sprintf("bytes=0-%d", ProbeLimitSVG-1))
	if err != nil {
		return Probe{}, err
	}
	defer resp.Body.Close()

	declared := mediaType(resp.Header.Get("Content-Type"))
	limit := int64(ProbeLimit)
	if declared == "" || declared == "application/octet-stream" || isSVGType(declared) || strings.HasPrefix(declared, "text/") {
		limit = ProbeLimitSVG
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil && len(head) == 0 {
		return Probe{}, Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return sniff(declared, head)
}

// sniff decodes dimensions from the first bytes of an image.
func sniff(declared string, head []byte) (Probe, error) {
	ct := declared
	if ct == "" || ct == "application/octet-stream" || ct == "text/xml" || ct == "application/xml" || ct == "text/plain" {
		ct = detect(head)
	}

	if isSVGType(ct) {
		w, h, err := SVGSize(head)
		if err != nil {
			return Probe{ContentType: "image/svg+xml"}, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		return Probe{Width: w, Height: h, ContentType: "image/svg+xml"}, nil
	}
	if !strings.HasPrefix(ct, "image/") {
		return Probe{ContentType: ct}, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(head))
	if err != nil {
		return Probe{ContentType: ct}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return Probe{Width: cfg.Width, Height: cfg.Height, ContentType: "image/" + format}, nil
}

func detect(head []byte) string {
	if looksLikeSVG(head) {
		return "image/svg+xml"
	}
	return mediaType(http.DetectContentType(head))
}

func looksLikeSVG(head []byte) bool {
	n := min(len(head), 4096)
	return bytes.Contains(bytes.ToLower(head[:n]), []byte("<svg"))
}

func isSVGType(ct string) bool { return ct == "image/svg+xml" }

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

// Fetch downloads the image at url. Bodies over FetchLimit fail with
// ErrTooLarge.
func (c *Client) Fetch(ctx context.Context, url string) (data []byte, contentType string, err error) {
	err = Retry(ctx, c.attempts, c.delay, func() error {
		resp, err := c.get(ctx, url, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, FetchLimit+1))
		if err != nil {
			return Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
		}
		if len(body) > FetchLimit {
			return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, FetchLimit)
		}
		data = body
		contentType = mediaType(resp.Header.Get("Content-Type"))
		if contentType == "" || contentType == "application/octet-stream" || contentType == "text/plain" || contentType == "text/xml" {
			contentType = detect(body)
		}
		return nil
	})
	if err != nil {
		return nil, "", coded(ctx, err, "fetch %s", url)
	}
	return data, contentType, nil
}

func (c *Client) get(ctx context.Context, url, byteRange string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "image/*")
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if errors.Is(err, ErrBlockedHost) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if IsTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		return nil, Retryable(fmt.Errorf("%w: %w", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK || code == http.StatusPartialContent:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// coded tags a failed request with an application error code. The
// sentinels stay reachable through errors.Is; cancellation by the caller
// and content problems (undecodable, too large) pass through unchanged.
func coded(ctx context.Context, err error, format string, args ...any) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.ErrCodeNotFound, err, format, args...)
	case errors.Is(err, ErrBlockedHost):
		return apperr.Wrap(apperr.ErrCodeInvalidInput, err, format, args...)
	case IsTimeout(err):
		return apperr.Wrap(apperr.ErrCodeTimeout, err, format, args...)
	case errors.Is(err, ErrNetwork):
		return apperr.Wrap(apperr.ErrCodeNetwork, err, format, args...)
	}
	return err
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
