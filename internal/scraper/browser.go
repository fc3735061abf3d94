package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
)

// Browser page elements
const (
	usernameSelector = "#code"
	pinSelector      = "#pin"
	submitSelector   = ".formButtons > a"
)

// DefaultSettle is how long the browser waits for the items page to render after clicking through
const DefaultSettle = 3 * time.Second

// Browser logs in with a headless Chromium, for catalogs whose login button
// submits through JavaScript
type Browser struct {
	cfg    Config
	settle time.Duration
	opts   []chromedp.ExecAllocatorOption
}

// NewBrowser creates a Browser fetcher. Extra allocator options are appended
// to chromedp's defaults (which already run headless).
func NewBrowser(cfg Config, opts ...chromedp.ExecAllocatorOption) *Browser {
	return &Browser{
		cfg:    cfg.withDefaults(),
		settle: DefaultSettle,
		opts:   opts,
	}
}

// FetchItems logs in through the browser and parses the rendered items page
func (b *Browser) FetchItems(ctx context.Context) ([]loan.RawItem, error) {
	if err := b.cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(b.cfg.UserAgent))
	allocOpts = append(allocOpts, b.opts...)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, b.cfg.Timeout)
	defer cancelTimeout()

	logger.Debug("Browser initialized", logger.Fields{"url": b.cfg.LoginURL})

	var title string
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(b.cfg.LoginURL),
		chromedp.Title(&title),
	); err != nil {
		return nil, fmt.Errorf("browser: loading login page: %w", err)
	}

	if b.cfg.LoginTitle != "" && strings.TrimSpace(title) != b.cfg.LoginTitle {
		return nil, fmt.Errorf("%w: login page title %q, want %q", ErrUnexpectedPage, title, b.cfg.LoginTitle)
	}

	if err := chromedp.Run(browserCtx,
		chromedp.WaitVisible(usernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(usernameSelector, b.cfg.Credentials.Username, chromedp.ByQuery),
		chromedp.SendKeys(pinSelector, b.cfg.Credentials.PIN, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
		chromedp.WaitVisible(checkoutsLinkSelector, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("browser: logging in: %w", err)
	}

	logger.Debug("Logged in to patron account", logger.Fields{"fetcher": "browser"})

	var html string
	if err := chromedp.Run(browserCtx,
		chromedp.Click(checkoutsLinkSelector, chromedp.ByQuery),
		chromedp.Sleep(b.settle),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("browser: opening checked-out items: %w", err)
	}

	return ParseItems(strings.NewReader(html))
}
