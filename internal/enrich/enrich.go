// Package enrich gathers similar job postings from job portals to give the
// description generator reference text.
package enrich

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Posting is one job card scraped from a portal.
type Posting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// Source searches one portal.
type Source interface {
	Name() string
	Search(ctx context.Context, jobTitle, company string) ([]Posting, error)
}

const DefaultSourceTimeout = 20 * time.Second

// Aggregator queries every source in order. A failing source is logged and
// skipped.
type Aggregator struct {
	sources []Source
	timeout time.Duration
}

func NewAggregator(timeout time.Duration, sources ...Source) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Aggregator{sources: sources, timeout: timeout}
}

func (a *Aggregator) Sources() int { return len(a.sources) }

func (a *Aggregator) Search(ctx context.Context, jobTitle, company string) []Posting {
	log.Printf("enrich search title=%q company=%q sources=%d", jobTitle, company, len(a.sources))
	var all []Posting
	for _, src := range a.sources {
		if ctx.Err() != nil {
			break
		}
		sctx, cancel := context.WithTimeout(ctx, a.timeout)
		found, err := src.Search(sctx, jobTitle, company)
		cancel()
		if err != nil {
			log.Printf("enrich source=%s failed: %v", src.Name(), err)
			continue
		}
		for i := range found {
			if found[i].Source == "" {
				found[i].Source = src.Name()
			}
		}
		log.Printf("enrich source=%s results=%d", src.Name(), len(found))
		all = append(all, found...)
	}
	return all
}

// FormatPostings renders postings as numbered reference blocks. No postings
// yield "".
func FormatPostings(postings []Posting) string {
	if len(postings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== Job Descriptions Found from Web Search ===\n\n")
	for i, p := range postings {
		company := p.Company
		if strings.TrimSpace(company) == "" {
			company = "N/A"
		}
		desc := p.Description
		if strings.TrimSpace(desc) == "" {
			desc = "No description"
		}
		fmt.Fprintf(&b, "%d. %s at %s (Source: %s)\n", i+1, p.Title, company, p.Source)
		fmt.Fprintf(&b, "   Description: %s\n\n", desc)
	}
	return b.String()
}
