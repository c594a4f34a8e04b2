package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
)

type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ResolveControlURL turns an http DevTools address into its websocket
// debugger URL. ws and wss URLs are returned unchanged.
func ResolveControlURL(ctx context.Context, client *resty.Client, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("control url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return raw, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("control url: unsupported scheme %q", u.Scheme)
	}

	var info versionInfo
	resp, err := client.R().
		SetContext(ctx).
		SetResult(&info).
		Get(strings.TrimSuffix(raw, "/") + "/json/version")
	if err != nil {
		return "", fmt.Errorf("resolve control url: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("resolve control url: %s returned %s", resp.Request.URL, resp.Status())
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("resolve control url: no webSocketDebuggerUrl in /json/version")
	}
	return info.WebSocketDebuggerURL, nil
}
