package httpx

import (
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"

	"github.com/palisadehq/palisade/internal/config"
)

// ProxyConfig is an explicit outbound proxy. When Address is empty the
// process environment (http_proxy, https_proxy, no_proxy) applies instead.
// NoProxy uses the conventional comma-separated exception list: an entry
// matches the host and its subdomains at a dot boundary, host:port entries
// match exactly, and "*" disables proxying entirely.
type ProxyConfig struct {
	Address  string
	Port     int
	Username string
	Password string
	NoProxy  string
}

func (c *ProxyConfig) configured() bool {
	return c != nil && c.Address != ""
}

// ProxyFromConfig lifts the loaded application configuration into the
// transport's proxy settings. An unconfigured proxy returns nil, which
// defers to the process environment.
func ProxyFromConfig(cfg config.ProxyConfig) *ProxyConfig {
	if cfg.Address == "" {
		return nil
	}
	return &ProxyConfig{
		Address:  cfg.Address,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		NoProxy:  cfg.NoProxy,
	}
}

// proxyURL renders the configured proxy as a URL, including credentials
// when present.
func (c *ProxyConfig) proxyURL() string {
	u := &url.URL{Scheme: "http", Host: c.Address}
	if c.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", c.Address, c.Port)
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// ProxyFunc returns the proxy selector used by outbound transports. An
// explicit configuration takes precedence over the environment.
func ProxyFunc(cfg *ProxyConfig) func(*http.Request) (*url.URL, error) {
	var hp *httpproxy.Config
	if cfg.configured() {
		proxyURL := cfg.proxyURL()
		hp = &httpproxy.Config{
			HTTPProxy:  proxyURL,
			HTTPSProxy: proxyURL,
			NoProxy:    cfg.NoProxy,
		}
	} else {
		hp = httpproxy.FromEnvironment()
	}
	selector := hp.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return selector(req.URL)
	}
}

// ShouldProxy reports whether a request to rawURL would be routed through
// a proxy under the given configuration.
func ShouldProxy(cfg *ProxyConfig, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if !cfg.configured() {
		proxy, err := httpproxy.FromEnvironment().ProxyFunc()(u)
		if err != nil {
			return false, err
		}
		return proxy != nil, nil
	}
	proxyURL := cfg.proxyURL()
	selector := (&httpproxy.Config{
		HTTPProxy:  proxyURL,
		HTTPSProxy: proxyURL,
		NoProxy:    cfg.NoProxy,
	}).ProxyFunc()
	proxy, err := selector(u)
	if err != nil {
		return false, err
	}
	return proxy != nil, nil
}
