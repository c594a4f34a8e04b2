package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// WaitHealthy polls baseURL/health until it answers 200. Connection errors
// and 5xx responses are retried with backoff up to retries times.
func WaitHealthy(ctx context.Context, baseURL string, retries int, maxWait time.Duration, logger *zap.Logger) error {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = maxWait
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Debug("Waiting for server", zap.String("url", req.URL.String()), zap.Int("attempt", attempt))
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("server not healthy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server not healthy: %s", resp.Status)
	}
	return nil
}
