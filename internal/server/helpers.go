package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HealthURL maps a server URL in any of the accepted forms (http, https,
// ws, wss, with or without the /ws path) to its /health endpoint.
func HealthURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws") + "/health"
	return u.String(), nil
}

// WaitForHealthy polls the /health endpoint until it returns 200 OK or the context is cancelled.
func WaitForHealthy(ctx context.Context, serverURL string) error {
	healthURL, err := HealthURL(serverURL)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 1 * time.Second}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("server not healthy at %s: %w", healthURL, ctx.Err())
		case <-ticker.C:
		}
	}
}
