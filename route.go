package billingo

import (
	"fmt"
	"strings"
)

// Route is an API endpoint path relative to a host. Path segments may contain
// %s or %d verbs filled by Path.
type Route struct {
	host string
	uri  string
}

// NewRoute returns a Route for uri under host.
func NewRoute(host, uri string) Route {
	return Route{host: host, uri: uri}
}

// RelativePath returns the uri with params substituted and no leading slash.
func (r Route) RelativePath(params ...interface{}) string {
	uri := r.uri
	if len(params) > 0 {
		uri = fmt.Sprintf(uri, params...)
	}
	return strings.TrimLeft(uri, "/")
}

// Path returns the absolute URL for the route with params substituted.
func (r Route) Path(params ...interface{}) string {
	return joinURL(r.host, r.RelativePath(params...))
}

func joinURL(host, path string) string {
	return strings.TrimRight(host, "/") + "/" + strings.TrimLeft(path, "/")
}
