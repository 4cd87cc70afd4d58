// Package httputil fetches and probes remote images.
//
// [Client.Probe] answers "how large is this image and what type is it"
// while reading as few bytes as possible: it asks for a byte range, reads
// at most [ProbeLimit] bytes ([ProbeLimitSVG] for SVG) and decodes only the
// header. [Client.Fetch] downloads a whole image, capped at [FetchLimit],
// for embedding in a card.
//
// Transient failures (network errors, 5xx and 429 responses) are retried
// with [Retry]:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return doRequest()
//	})
//
// Failed requests carry an application error code: NOT_FOUND for 404 and
// 410, TIMEOUT for deadlines, NETWORK_ERROR for everything else on the wire.
//
// Every request reports to the observability HTTP hooks.
package httputil
