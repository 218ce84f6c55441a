package openweather

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const DefaultConnectTimeout = 10 * time.Second

// Fetcher performs a single GET and hands back the status code and body.
type Fetcher interface {
	Get(ctx context.Context, url string) (int, []byte, error)
}

type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher bounds connection setup by connectTimeout. Reading the
// response is not bounded and nothing is retried.
func NewHTTPFetcher(connectTimeout time.Duration) *HTTPFetcher {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
	}
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "creating request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "making request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Error statuses are reported with an empty body if it cannot be read.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, nil, nil
		}
		return 0, nil, errors.Wrap(err, "reading response")
	}

	return resp.StatusCode, body, nil
}
