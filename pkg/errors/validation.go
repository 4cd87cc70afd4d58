package errors

import (
	"net"
	"net/url"
	"strings"
	"unicode"
)

// MaxURLLength bounds caller-supplied image URLs.
const MaxURLLength = 2048

// ValidateImageURL validates an untrusted image URL before anything is fetched.
//
// Validation rules:
//   - URL cannot be empty
//   - Maximum length of MaxURLLength bytes
//   - No control characters
//   - Scheme must be http or https
//   - A host must be present and must not carry credentials
//
// Host reachability rules (private networks) are checked separately by
// ValidatePublicHost so callers can opt out of them.
func ValidateImageURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return nil, New(ErrCodeInvalidInput, "URL too long (max %d characters)", MaxURLLength)
	}
	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return nil, New(ErrCodeInvalidInput, "URL contains invalid control characters")
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, Wrap(ErrCodeInvalidInput, err, "malformed URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Hostname() == "" {
		return nil, New(ErrCodeInvalidInput, "URL must have a host")
	}
	if u.User != nil {
		return nil, New(ErrCodeInvalidInput, "URL must not contain credentials")
	}
	return u, nil
}

// ValidatePublicHost rejects hosts that obviously point into the local machine
// or a private network: localhost names and literal loopback, private,
// link-local and unspecified addresses. Names are not resolved.
func ValidatePublicHost(u *url.URL) error {
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return New(ErrCodeInvalidInput, "URL host %q is not public", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return New(ErrCodeInvalidInput, "URL host %q is not public", host)
	}
	return nil
}
