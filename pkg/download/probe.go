package download

import (
	"context"
	"net/http"

	"github.com/rget/rget/pkg/client"
	"github.com/rget/rget/pkg/logging"
)

// Size is the result of probing a resource.
type Size struct {
	// Length is only meaningful when Known is set.
	Length int64
	Known  bool
	// URL is the resource URL after following redirects.
	URL string
}

type Prober struct {
	Client *http.Client
	// EchoHeaders logs the probe response status and headers.
	EchoHeaders bool
}

// Probe issues a HEAD request for url and reports the declared content length. A missing length is
// not an error: the returned Size has Known unset. An error status is tolerated as long as the
// response still declares a length.
func (p *Prober) Probe(ctx context.Context, url string) (Size, error) {
	logger := logging.GetLogger()
	if p.EchoHeaders {
		ctx = client.WithHeaderEcho(ctx)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Size{}, &ConfigurationError{Field: "url", Reason: err.Error()}
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return Size{}, &NetworkError{Op: "probe", URL: url, Err: err}
	}
	defer resp.Body.Close()

	size := Size{Length: resp.ContentLength, Known: resp.ContentLength >= 0, URL: url}
	if resp.Request != nil && resp.Request.URL.String() != url {
		size.URL = resp.Request.URL.String()
		logger.Info().Str("url", url).Str("redirect_url", size.URL).Msg("Redirect")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if !size.Known {
			return Size{}, &NetworkError{Op: "probe", URL: url, Err: ErrUnexpectedHTTPStatus(resp.StatusCode)}
		}
		logger.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int64("size", size.Length).
			Msg("Probe returned an error status, using the declared length anyway")
	}
	if !size.Known {
		size.Length = 0
	}
	return size, nil
}
