package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxFetchBytes caps how much of a response body a data_fetcher invocation
// will buffer into a node output.
const maxFetchBytes = 1 << 20

// DataFetcher performs an HTTP GET of the "url" input and returns the status
// code and body. A "url" entry in its config serves as the fallback when the
// inputs carry none.
type DataFetcher struct {
	client *http.Client
	conf   map[string]any
}

// NewDataFetcher builds a data_fetcher agent with a dedicated HTTP client.
func NewDataFetcher(conf map[string]any) *DataFetcher {
	return &DataFetcher{
		client: &http.Client{Timeout: 10 * time.Second},
		conf:   conf,
	}
}

// Execute implements the Agent interface.
func (d *DataFetcher) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	url, ok := stringValue(inputs["url"])
	if !ok {
		if url, ok = stringValue(d.conf["url"]); !ok {
			return nil, fmt.Errorf("data_fetcher: missing %q input", "url")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("data_fetcher: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data_fetcher: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("data_fetcher: reading body of %s: %w", url, err)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(body),
	}, nil
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}
