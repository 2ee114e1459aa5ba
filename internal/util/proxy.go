// Package util holds network helpers shared by the fetchers.
package util

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// NewProxyFunc builds a Transport.Proxy function from explicit settings.
// With no proxy URLs configured the standard environment variables apply.
// noProxy is a comma-separated list of hosts or domain suffixes (".example.org"
// or "example.org") that are always reached directly; "*" disables proxying.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := parseNoProxy(noProxy)
	return func(req *http.Request) (*url.URL, error) {
		if bypass.matches(req.URL.Hostname()) {
			return nil, nil
		}
		raw := httpProxy
		if req.URL.Scheme == "https" && httpsProxy != "" {
			raw = httpsProxy
		}
		if raw == "" {
			return http.ProxyFromEnvironment(req)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse proxy url %q", raw)
		}
		return u, nil
	}
}

type noProxyList struct {
	all     bool
	entries []string
}

func parseNoProxy(s string) noProxyList {
	var l noProxyList
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "*":
			l.all = true
		default:
			if host, _, err := net.SplitHostPort(part); err == nil {
				part = host
			}
			l.entries = append(l.entries, strings.TrimPrefix(part, "."))
		}
	}
	return l
}

func (l noProxyList) matches(host string) bool {
	if l.all {
		return true
	}
	host = strings.ToLower(host)
	for _, e := range l.entries {
		if host == e || strings.HasSuffix(host, "."+e) {
			return true
		}
	}
	return false
}
