package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pfrederiksen/library-due-dates/internal/loan"
	"github.com/pfrederiksen/library-due-dates/internal/logger"
)

const (
	DefaultLoginURL = "https://catalog.oslri.net/patroninfo"
	UserAgent       = "library-due-dates/1.0 (github.com/pfrederiksen/library-due-dates)"
	Timeout         = 30 * time.Second

	checkoutsLinkSelector = "#patButChkouts"
)

// Fetcher returns the raw checked-out rows of a patron account
type Fetcher interface {
	FetchItems(ctx context.Context) ([]loan.RawItem, error)
}

// Credentials identify the patron
type Credentials struct {
	Username string // library card barcode
	PIN      string
}

// Validate checks that both credentials are present
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.PIN) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Config holds the fetcher settings. Zero values fall back to the defaults above.
type Config struct {
	LoginURL    string
	LoginTitle  string // expected <title> of the login page, empty skips the check
	Credentials Credentials
	Timeout     time.Duration
	UserAgent   string
}

func (c Config) withDefaults() Config {
	if c.LoginURL == "" {
		c.LoginURL = DefaultLoginURL
	}
	if c.Timeout <= 0 {
		c.Timeout = Timeout
	}
	if c.UserAgent == "" {
		c.UserAgent = UserAgent
	}
	return c
}

// Scraper logs in over HTTP and reads the checkout table
type Scraper struct {
	client *resty.Client
	cfg    Config
}

// New creates a new Scraper instance. The resty client keeps the session
// cookies between the login post and the items page.
func New(cfg Config) *Scraper {
	cfg = cfg.withDefaults()

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &Scraper{
		client: client,
		cfg:    cfg,
	}
}

// FetchItems logs in and returns the rows of the checked-out items table
func (s *Scraper) FetchItems(ctx context.Context) ([]loan.RawItem, error) {
	if err := s.cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	loginDoc, err := s.getDocument(ctx, s.cfg.LoginURL)
	if err != nil {
		return nil, fmt.Errorf("loading login page: %w", err)
	}

	if s.cfg.LoginTitle != "" {
		if title := collapseSpace(loginDoc.Find("title").First().Text()); title != s.cfg.LoginTitle {
			return nil, fmt.Errorf("%w: login page title %q, want %q", ErrUnexpectedPage, title, s.cfg.LoginTitle)
		}
	}

	action, form, err := loginForm(loginDoc, s.cfg.LoginURL)
	if err != nil {
		return nil, err
	}
	form["code"] = s.cfg.Credentials.Username
	form["pin"] = s.cfg.Credentials.PIN

	homeDoc, err := s.postForm(ctx, action, form)
	if err != nil {
		return nil, fmt.Errorf("submitting login: %w", err)
	}
	logger.Debug("Logged in to patron account", logger.Fields{"url": action})

	href, ok := checkoutsLink(homeDoc)
	if !ok {
		switch {
		case homeDoc.Find(`input[name="pin"]`).Length() > 0:
			return nil, ErrLoginFailed
		case homeDoc.Find("#checkout_form").Length() > 0:
			// Some catalogs land directly on the items page
			return parseDocument(homeDoc)
		default:
			return nil, fmt.Errorf("%w: no checked-out items link after login", ErrUnexpectedPage)
		}
	}

	itemsURL, err := resolve(action, href)
	if err != nil {
		return nil, fmt.Errorf("resolving items link: %w", err)
	}

	itemsDoc, err := s.getDocument(ctx, itemsURL)
	if err != nil {
		return nil, fmt.Errorf("loading checked-out items: %w", err)
	}

	items, err := parseDocument(itemsDoc)
	if err != nil {
		return nil, err
	}

	logger.Debug("Fetched checked-out items", logger.Fields{"count": len(items), "url": itemsURL})
	return items, nil
}

func (s *Scraper) getDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	return documentFrom(resp, pageURL)
}

func (s *Scraper) postForm(ctx context.Context, pageURL string, form map[string]string) (*goquery.Document, error) {
	resp, err := s.client.R().SetContext(ctx).SetFormData(form).Post(pageURL)
	if err != nil {
		return nil, fmt.Errorf("posting form: %w", err)
	}
	return documentFrom(resp, pageURL)
}

func documentFrom(resp *resty.Response, pageURL string) (*goquery.Document, error) {
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// loginForm finds the form holding the PIN field and returns its absolute
// action URL and hidden inputs
func loginForm(doc *goquery.Document, pageURL string) (string, map[string]string, error) {
	form := doc.Find("form").FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return sel.Find(`input[name="pin"]`).Length() > 0
	}).First()

	if form.Length() == 0 {
		return "", nil, fmt.Errorf("%w: no login form on %s", ErrUnexpectedPage, pageURL)
	}

	action, err := resolve(pageURL, form.AttrOr("action", ""))
	if err != nil {
		return "", nil, fmt.Errorf("resolving login form action: %w", err)
	}

	fields := make(map[string]string)
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		if name, ok := input.Attr("name"); ok && name != "" {
			fields[name] = input.AttrOr("value", "")
		}
	})

	return action, fields, nil
}

// checkoutsLink returns the href of the "Items Checked Out" button.
// Sierra skins put the id either on the anchor or on a wrapper around it.
func checkoutsLink(doc *goquery.Document) (string, bool) {
	sel := doc.Find(checkoutsLinkSelector).First()
	if sel.Length() == 0 {
		return "", false
	}
	if href, ok := sel.Attr("href"); ok && href != "" {
		return href, true
	}
	if href, ok := sel.Find("a[href]").First().Attr("href"); ok && href != "" {
		return href, true
	}
	if href, ok := sel.Closest("a[href]").Attr("href"); ok && href != "" {
		return href, true
	}
	return "", false
}

func resolve(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
