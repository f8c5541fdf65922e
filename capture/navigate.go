package capture

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/spacapture/engine"
	"github.com/use-agent/spacapture/models"
)

// Navigate loads url into page and waits for network quiescence, bounded by
// timeout. Any failure is a navigation error and fatal to the capture.
func Navigate(ctx context.Context, page engine.Page, url string, timeout, idle time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.Navigate(ctx, url, idle); err != nil {
		return categorizeError(err, "navigation to "+url+" failed")
	}
	return nil
}

// NavigationStatus returns the HTTP status of the loaded document, or 0 when
// the engine cannot tell.
func NavigationStatus(ctx context.Context, page engine.Page) int {
	var status int
	if err := page.Evaluate(ctx, engine.NavigationStatus, &status); err != nil {
		return 0
	}
	return status
}

// WaitForContent waits up to timeout for any element matching the selector
// group. A non-nil error only means the heuristic did not match.
func WaitForContent(ctx context.Context, page engine.Page, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.WaitForSelector(ctx, selector)
}

// categorizeError wraps raw navigation errors into typed CaptureErrors so
// callers can tell a deadline from a transport failure.
func categorizeError(err error, msg string) *models.CaptureError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewNavigationError(true, msg+": timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewNavigationError(false, "capture canceled", err)
	default:
		return models.NewNavigationError(false, msg, err)
	}
}
