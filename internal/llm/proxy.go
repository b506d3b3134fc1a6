package llm

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// newProxyFunc picks an explicit proxy per scheme. Hosts matching noProxy
// (comma-separated names, domain suffixes, or "*") connect directly. With no
// explicit proxy the environment decides.
func newProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func newHTTPClient(config Config, timeout int, fallback int) *http.Client {
	if timeout <= 0 {
		timeout = fallback
	}
	return &http.Client{
		Timeout: secondsDuration(timeout),
		Transport: &http.Transport{
			Proxy: newProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}
}

func splitNoProxy(noProxy string) []string {
	var out []string
	for _, part := range strings.Split(noProxy, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, strings.TrimPrefix(part, "."))
		}
	}
	return out
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		if b == "*" || host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
		if ip := net.ParseIP(host); ip != nil {
			if _, cidr, err := net.ParseCIDR(b); err == nil && cidr.Contains(ip) {
				return true
			}
		}
	}
	return false
}
