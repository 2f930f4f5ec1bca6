// Package browser starts headless Chromium sessions through chromedp.
package browser

import (
	"context"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultTimeout bounds one browser session.
const DefaultTimeout = 30 * time.Second

// ChromePathEnv overrides Chromium detection.
const ChromePathEnv = "SSFINDER_CHROME_PATH"

// NewContext returns a chromedp task context backed by a fresh headless
// browser. Cancel releases the browser and the allocator.
func NewContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	}
	if p := DetectChromePath(); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	return taskCtx, func() {
		taskCancel()
		allocCancel()
		cancel()
	}
}

// DetectChromePath returns the first Chromium binary found, or "" to let
// chromedp search PATH.
func DetectChromePath() string {
	if p := os.Getenv(ChromePathEnv); p != "" {
		return p
	}
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
