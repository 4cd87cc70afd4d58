package httputil

import (
	"encoding/base64"
	"strings"
)

// DataURI encodes data as a base64 data URI. Media type parameters are
// dropped.
func DataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
