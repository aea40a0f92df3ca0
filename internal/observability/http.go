package observability

import (
	"net/http"
	"regexp"
	"strings"
)

var numericSegment = regexp.MustCompile(`/\d+`)

// RouteLabel collapses numeric path segments so metric labels stay bounded.
func RouteLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return numericSegment.ReplaceAllString(path, "/:id")
}

// SetRequestHeaders stamps correlation headers on an outgoing request.
func SetRequestHeaders(r *http.Request, requestID, deviceID string) {
	if requestID != "" {
		r.Header.Set("X-Request-Id", requestID)
	}
	if deviceID != "" {
		r.Header.Set("X-Device-Id", deviceID)
	}
}
