package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rget/rget/pkg/logging"
	"github.com/rget/rget/pkg/version"
)

type Options struct {
	// ForceHTTP2 allows every range to share one multiplexed connection. Off by default so each
	// worker gets its own TCP connection.
	ForceHTTP2 bool
	// ConnectTimeout bounds dialing only. Zero means no bound.
	ConnectTimeout time.Duration
	// Timeout bounds a whole request including reading its body. Zero means no bound.
	Timeout time.Duration
	// ResolveOverrides maps host:port to ip:port, see config.ResolveOverridesToMap.
	ResolveOverrides map[string]string
}

type echoHeadersKey struct{}

// WithHeaderEcho marks requests made with ctx so their response status and headers are logged.
func WithHeaderEcho(ctx context.Context) context.Context {
	return context.WithValue(ctx, echoHeadersKey{}, true)
}

func headerEchoEnabled(ctx context.Context) bool {
	v, _ := ctx.Value(echoHeadersKey{}).(bool)
	return v
}

type UserAgentTransport struct {
	Transport http.RoundTripper
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", version.UserAgent())
	return t.Transport.RoundTrip(req)
}

// NewHTTPClient returns an *http.Client backed by retryablehttp. Retries are disabled: a failed
// request is reported to the caller as-is, the retryablehttp layer only contributes its request
// logging and response hooks.
func NewHTTPClient(opts Options) *http.Client {
	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: transportDialContext(&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}, opts.ResolveOverrides),
		ForceAttemptHTTP2:     opts.ForceHTTP2,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}
	if !opts.ForceHTTP2 {
		// a non-nil empty map disables the automatic HTTP/2 upgrade
		baseTransport.TLSNextProto = make(map[string]func(authority string, c *tls.Conn) http.RoundTripper)
	}

	retryClient := &retryablehttp.Client{
		HTTPClient: &http.Client{
			Transport:     &UserAgentTransport{Transport: baseTransport},
			CheckRedirect: checkRedirectFunc,
		},
		Logger:          &leveledLogger{},
		RetryWaitMin:    0,
		RetryWaitMax:    0,
		RetryMax:        0,
		CheckRetry:      noRetryPolicy,
		Backoff:         retryablehttp.DefaultBackoff,
		ErrorHandler:    retryablehttp.PassthroughErrorHandler,
		ResponseLogHook: echoResponseHeaders,
	}

	client := retryClient.StandardClient()
	client.Timeout = opts.Timeout
	return client
}

// noRetryPolicy never asks for another attempt; a cancelled context is still surfaced.
func noRetryPolicy(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

// echoResponseHeaders logs the status line and headers of responses to requests made with
// WithHeaderEcho.
func echoResponseHeaders(_ retryablehttp.Logger, resp *http.Response) {
	if resp == nil || resp.Request == nil || !headerEchoEnabled(resp.Request.Context()) {
		return
	}
	logger := logging.GetLogger()
	logger.Info().
		Str("method", resp.Request.Method).
		Str("url", resp.Request.URL.String()).
		Str("proto", resp.Proto).
		Str("status", resp.Status).
		Msg("Response")
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range resp.Header.Values(name) {
			logger.Info().Str("name", name).Str("value", value).Msg("Header")
		}
	}
}

// checkRedirectFunc follows redirects with the net/http defaults and logs each hop.
func checkRedirectFunc(req *http.Request, via []*http.Request) error {
	logger := logging.GetLogger()
	event := logger.Debug().
		Str("redirect_url", req.URL.String()).
		Str("url", via[0].URL.String())
	if req.Response != nil {
		event = event.Int("status", req.Response.StatusCode)
	}
	event.Msg("Redirect")
	if len(via) >= 10 {
		return http.ErrUseLastResponse
	}
	return nil
}

// transportDialContext is a wrapper around net.Dialer that allows for overriding DNS lookups via
// the values passed to the `--resolve` argument.
func transportDialContext(dialer *net.Dialer, overrides map[string]string) func(context.Context, string, string) (net.Conn, error) {
	// Allow for overriding DNS lookups in the dialer without impacting Host and SSL resolution
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if addrOverride := overrides[addr]; addrOverride != "" {
			logger := logging.GetLogger()
			logger.Debug().Str("addr", addr).Str("override", addrOverride).Msg("DNS Override")
			addr = addrOverride
		}
		return dialer.DialContext(ctx, network, addr)
	}
}
