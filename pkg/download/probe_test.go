package download_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rget/rget/pkg/download"
)

const probeURL = "https://files.example.com/data/archive.bin"

func headResponder(status int, contentLength int64) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			Status:        http.StatusText(status),
			StatusCode:    status,
			Header:        http.Header{},
			ContentLength: contentLength,
			Body:          http.NoBody,
			Request:       req,
		}, nil
	}
}

func newMockProber(t *testing.T, responder httpmock.Responder) (*download.Prober, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodHead, probeURL, responder)
	return &download.Prober{Client: &http.Client{Transport: transport}}, transport
}

func TestProbe(t *testing.T) {
	testCases := []struct {
		name      string
		responder httpmock.Responder
		expected  download.Size
		errStatus int
	}{
		{
			name:      "known length",
			responder: headResponder(http.StatusOK, 12*1024*1024),
			expected:  download.Size{Length: 12 * 1024 * 1024, Known: true, URL: probeURL},
		},
		{
			name:      "zero length",
			responder: headResponder(http.StatusOK, 0),
			expected:  download.Size{Length: 0, Known: true, URL: probeURL},
		},
		{
			name:      "missing length",
			responder: headResponder(http.StatusOK, -1),
			expected:  download.Size{Length: 0, Known: false, URL: probeURL},
		},
		{
			name:      "error status with length is tolerated",
			responder: headResponder(http.StatusForbidden, 512),
			expected:  download.Size{Length: 512, Known: true, URL: probeURL},
		},
		{
			name:      "error status without length",
			responder: headResponder(http.StatusNotFound, -1),
			errStatus: http.StatusNotFound,
		},
		{
			name:      "connection failure",
			responder: httpmock.NewErrorResponder(errors.New("connection refused")),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prober, transport := newMockProber(t, tc.responder)

			size, err := prober.Probe(context.Background(), probeURL)
			assert.Equal(t, 1, transport.GetTotalCallCount())

			if tc.name == "connection failure" || tc.errStatus != 0 {
				var netErr *download.NetworkError
				require.ErrorAs(t, err, &netErr)
				assert.Equal(t, "probe", netErr.Op)
				assert.Nil(t, netErr.Range)
				if tc.errStatus != 0 {
					var statusErr download.HTTPStatusError
					require.ErrorAs(t, err, &statusErr)
					assert.Equal(t, tc.errStatus, statusErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, size)
		})
	}
}

func TestProbeUsesHead(t *testing.T) {
	prober, transport := newMockProber(t, headResponder(http.StatusOK, 10))
	transport.RegisterResponder(http.MethodGet, probeURL, headResponder(http.StatusOK, 99))

	size, err := prober.Probe(context.Background(), probeURL)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size.Length)

	info := transport.GetCallCountInfo()
	assert.Equal(t, 1, info["HEAD "+probeURL])
	assert.Equal(t, 0, info["GET "+probeURL])
}

func TestProbeInvalidURL(t *testing.T) {
	prober := &download.Prober{Client: http.DefaultClient}
	_, err := prober.Probe(context.Background(), "http://bad host/\x7f")
	var configErr *download.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}
