package tcloud

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tsingsun/tcloud/pkg/conf"
	"golang.org/x/net/http/httpproxy"
)

// TransportConfig configures the HTTP layer carrying signed requests.
type TransportConfig struct {
	*ProxyConfig `yaml:",inline" json:",inline"`
	// TLS to use to connect to the endpoint.
	TLS *conf.TLS `yaml:"tls,omitempty" json:"tls,omitempty"`
	// Timeout bounds one request end to end, zero means no limit.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type ProxyConfig struct {
	// ProxyURL routes endpoint traffic through the given HTTP proxy.
	ProxyURL string `yaml:"proxyUrl,omitempty" json:"proxyUrl,omitempty"`
	// NoProxy lists hosts that connect directly regardless of ProxyURL.
	NoProxy string `yaml:"noProxy,omitempty" json:"noProxy,omitempty"`
	// ProxyConnectHeader is sent to the proxy during CONNECT requests.
	ProxyConnectHeader http.Header `yaml:"proxyConnectHeader,omitempty" json:"proxyConnectHeader,omitempty"`
}

func (p ProxyConfig) Validate() error {
	if p.ProxyURL == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(p.ProxyURL); err != nil {
		return fmt.Errorf("proxyUrl %q is invalid: %w", p.ProxyURL, err)
	}
	return nil
}

// ProxyFunc adapts the proxy settings to the http.Transport.Proxy shape,
// honoring NoProxy the way the environment variables would.
func (p ProxyConfig) ProxyFunc() func(req *http.Request) (*url.URL, error) {
	lookup := (&httpproxy.Config{
		HTTPProxy:  p.ProxyURL,
		HTTPSProxy: p.ProxyURL,
		NoProxy:    p.NoProxy,
	}).ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return lookup(req.URL)
	}
}

// NewTransport builds a round tripper from a clone of the default transport.
func NewTransport(cfg TransportConfig) (http.RoundTripper, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		tc, err := cfg.TLS.BuildTlsConfig()
		if err != nil {
			return nil, err
		}
		tr.TLSClientConfig = tc
	}
	if cfg.ProxyConfig != nil {
		if err := cfg.ProxyConfig.Validate(); err != nil {
			return nil, err
		}
		tr.Proxy = cfg.ProxyConfig.ProxyFunc()
		tr.ProxyConnectHeader = cfg.ProxyConfig.ProxyConnectHeader
	}
	return tr, nil
}

// NewHTTPClient builds the http.Client the API client sends through.
func NewHTTPClient(cfg TransportConfig) (*http.Client, error) {
	base, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: base, Timeout: cfg.Timeout}, nil
}
