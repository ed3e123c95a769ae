// Package hosturl normalizes the handful of places a configured host or a
// redirect target needs to become a usable base URL. Grounded on the
// endpoint-normalization pattern the chaos-utils example repo uses for its
// own discovered endpoints: default a bare host:port to http, but never
// silently downgrade an explicit https.
package hosturl

import (
	"net/url"
	"strings"
)

// Normalize ensures host carries an explicit scheme, defaulting to http
// when the caller configured a bare host:port — the common case for a
// cluster that doesn't terminate TLS at the node. A host already written
// as "http://..." or "https://..." is returned unchanged (trailing
// slashes trimmed), so an operator who does run TLS at the node can
// configure "https://10.0.0.1:4001" and have it honored end to end.
func Normalize(host string) string {
	if strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + host
}

// BaseURL strips any path, query, and fragment from location, keeping only
// scheme+host, and reports false unless the result is an absolute http(s)
// URL. Used both to resolve a redirect's Location header and a leader
// probe's redirect target, so a cluster that redirects to an https:// node
// is followed as https, not silently downgraded to http.
func BaseURL(location string) (string, bool) {
	u, err := url.Parse(location)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}
