package scrape

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"internflow-engine/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	SourceLinkedIn  = "LinkedIn"
	defaultLocation = "Remote"
)

// ParseLinkedInSearch extracts up to limit postings from a public LinkedIn
// job search page. Cards without a title, company or link are skipped; a
// missing location means the posting is remote.
func ParseLinkedInSearch(r io.Reader, base *url.URL, limit int) ([]domain.NewJobPost, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("linkedin parse html: %w", err)
	}

	var out []domain.NewJobPost
	doc.Find("div.base-card").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}

		title := cleanText(card.Find("h3.base-search-card__title").First().Text())
		company := cleanText(card.Find("h4.base-search-card__subtitle").First().Text())
		href, _ := card.Find("a.base-card__full-link").First().Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || company == "" || href == "" {
			return true
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}

		loc := cleanText(card.Find("span.job-search-card__location").First().Text())
		if loc == "" {
			loc = defaultLocation
		}

		jp := domain.NewJobPost{
			Title:       title,
			CompanyName: company,
			Location:    loc,
			URL:         CanonicalURL(href),
			Source:      SourceLinkedIn,
		}
		if dt, ok := card.Find("time").First().Attr("datetime"); ok {
			if t, err := time.Parse("2006-01-02", strings.TrimSpace(dt)); err == nil {
				jp.PostedDate = &t
			}
		}
		out = append(out, jp)
		return true
	})
	return out, nil
}
