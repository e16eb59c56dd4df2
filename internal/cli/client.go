package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/focusrank/focusrank/internal/config"
)

const apiTimeout = 3 * time.Second

// apiClient queries the web API of a running daemon
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(cfg *config.Config, host string, port int) *apiClient {
	if host == "" {
		host = cfg.Web.Host
	}
	if port <= 0 {
		port = cfg.Web.Port
	}
	return &apiClient{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		http:    &http.Client{Timeout: apiTimeout},
	}
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to reach the daemon at %s (is it running with 'serve'?)", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return errors.Errorf("%s: %s", path, apiErr.Error)
		}
		return errors.Errorf("%s: unexpected status %s", path, resp.Status)
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode response")
}
