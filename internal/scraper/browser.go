package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// card is the object shape every in-page extraction script returns, one per
// result card on the marketplace search page.
type card struct {
	Title      string `json:"title"`
	Price      string `json:"price"`
	URL        string `json:"url"`
	Location   string `json:"location"`
	Attributes string `json:"attributes"`
}

// extractCards loads pageURL in a headless browser, waits for the page to
// settle, and evaluates script, which must produce an array of card objects.
// Each call runs an isolated browser context so a crashed tab on one
// marketplace cannot poison the next.
func extractCards(ctx context.Context, pageURL, script string, timeout time.Duration) ([]card, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(browserUserAgent),
	)
	if bin := findChromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Silence chromedp's internal logging; scrape failures surface as errors.
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	var cards []card
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(script, &cards),
	)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return cards, nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring CHROME_BIN.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
