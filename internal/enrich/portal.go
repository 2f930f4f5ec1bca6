package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/joelkehle/ssfinder/internal/browser"
)

// Portal describes how to read job cards from a portal's search page.
// URLTemplate holds a {query} placeholder; selectors are CSS, applied to
// each card.
type Portal struct {
	Name                string `json:"name"`
	URLTemplate         string `json:"url_template"`
	CardSelector        string `json:"card_selector"`
	TitleSelector       string `json:"title_selector"`
	CompanySelector     string `json:"company_selector,omitempty"`
	DescriptionSelector string `json:"description_selector,omitempty"`
	Limit               int    `json:"limit,omitempty"`
	// SettleMillis waits for client-side rendering after the body is ready.
	SettleMillis int `json:"settle_millis,omitempty"`
}

const defaultPortalLimit = 5

func DefaultPortals() []Portal {
	return []Portal{
		{
			Name:                "Indeed",
			URLTemplate:         "https://sg.indeed.com/jobs?q={query}",
			CardSelector:        "div.job_seen_beacon",
			TitleSelector:       "h2.jobTitle",
			CompanySelector:     "[data-testid='company-name']",
			DescriptionSelector: "div.job-snippet",
		},
		{
			Name:                "JobStreet",
			URLTemplate:         "https://www.jobstreet.com.sg/jobs?keywords={query}",
			CardSelector:        "article[data-testid='job-card']",
			TitleSelector:       "a[data-automation='jobTitle']",
			CompanySelector:     "a[data-automation='jobCompany']",
			DescriptionSelector: "span[data-automation='jobShortDescription']",
			SettleMillis:        1500,
		},
		{
			Name:            "MyCareersFuture",
			URLTemplate:     "https://www.mycareersfuture.gov.sg/search?search={query}",
			CardSelector:    "div[data-testid='job-card']",
			TitleSelector:   "h3",
			CompanySelector: "p",
			SettleMillis:    1500,
		},
	}
}

// LoadPortals reads a JSON array of portals. An empty path returns
// DefaultPortals.
func LoadPortals(path string) ([]Portal, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPortals(), nil
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read portals: %w", err)
	}
	var portals []Portal
	if err := json.Unmarshal(blob, &portals); err != nil {
		return nil, fmt.Errorf("parse portals %s: %w", path, err)
	}
	var errs []error
	for i, p := range portals {
		if err := p.validate(); err != nil {
			errs = append(errs, fmt.Errorf("portal %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return portals, nil
}

func (p Portal) validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("name is required")
	case !strings.Contains(p.URLTemplate, "{query}"):
		return errors.New("url_template must contain {query}")
	case p.CardSelector == "" || p.TitleSelector == "":
		return errors.New("card_selector and title_selector are required")
	}
	return nil
}

// SearchURL fills the template with the escaped "title company" query.
func (p Portal) SearchURL(jobTitle, company string) string {
	q := strings.TrimSpace(jobTitle + " " + company)
	return strings.ReplaceAll(p.URLTemplate, "{query}", url.QueryEscape(q))
}

// extractScript returns a JavaScript expression evaluating to the card list.
func (p Portal) extractScript() string {
	limit := p.Limit
	if limit <= 0 {
		limit = defaultPortalLimit
	}
	quote := func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	}
	return fmt.Sprintf(`(() => {
  const text = (root, sel) => {
    if (!sel) return "";
    const el = root.querySelector(sel);
    return el ? el.textContent.replace(/\s+/g, " ").trim() : "";
  };
  return Array.from(document.querySelectorAll(%s))
    .map(card => ({title: text(card, %s), company: text(card, %s), description: text(card, %s)}))
    .filter(p => p.title !== "")
    .slice(0, %d);
})()`, quote(p.CardSelector), quote(p.TitleSelector), quote(p.CompanySelector), quote(p.DescriptionSelector), limit)
}

// BrowserSource loads a portal search page in headless Chromium and reads
// its job cards.
type BrowserSource struct {
	portal  Portal
	timeout time.Duration
}

func NewBrowserSource(p Portal, timeout time.Duration) *BrowserSource {
	return &BrowserSource{portal: p, timeout: timeout}
}

func (s *BrowserSource) Name() string { return s.portal.Name }

func (s *BrowserSource) Search(ctx context.Context, jobTitle, company string) ([]Posting, error) {
	taskCtx, cancel := browser.NewContext(ctx, s.timeout)
	defer cancel()

	var postings []Posting
	actions := []chromedp.Action{
		chromedp.Navigate(s.portal.SearchURL(jobTitle, company)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.portal.SettleMillis > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(s.portal.SettleMillis)*time.Millisecond))
	}
	actions = append(actions, chromedp.Evaluate(s.portal.extractScript(), &postings))
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("%s: %w", s.portal.Name, err)
	}
	for i := range postings {
		postings[i].Source = s.portal.Name
	}
	return postings, nil
}

// NewPortalAggregator builds browser sources for every portal.
func NewPortalAggregator(portals []Portal, timeout time.Duration) *Aggregator {
	sources := make([]Source, 0, len(portals))
	for _, p := range portals {
		sources = append(sources, NewBrowserSource(p, timeout))
	}
	return NewAggregator(timeout, sources...)
}
