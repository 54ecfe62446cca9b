package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg together with the
// problems found in it. Warnings never block a save.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Sentiment.Positive = trimList(out.Sentiment.Positive)
	out.Sentiment.Negative = trimList(out.Sentiment.Negative)
	out.Scrape.SearchURLs = trimList(out.Scrape.SearchURLs)
	out.Database.Driver = strings.ToLower(strings.TrimSpace(out.Database.Driver))
	out.Logging.Level = strings.ToLower(strings.TrimSpace(out.Logging.Level))
	out.Logging.Format = strings.ToLower(strings.TrimSpace(out.Logging.Format))

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	switch out.Database.Driver {
	case "", "sqlite":
		out.Database.Driver = "sqlite"
	case "postgres":
		if strings.TrimSpace(out.Database.DSN) == "" {
			res.addErr("database.dsn is required when database.driver=postgres")
		}
	default:
		res.addErr("database.driver must be sqlite or postgres, got %q", out.Database.Driver)
	}

	// polling sanity
	if out.Polling.CycleSeconds <= 0 {
		res.addErr("polling.cycle_seconds must be > 0")
	} else if out.Polling.CycleSeconds < 30 {
		res.addWarn("polling.cycle_seconds is very low (%d) and may trip IMAP rate limits.", out.Polling.CycleSeconds)
	}
	if out.Scrape.Enabled && out.Polling.ScrapeMinutes <= 0 {
		res.addErr("polling.scrape_minutes must be > 0 when scrape.enabled=true")
	}

	if out.FollowUp.IntervalDays <= 0 {
		res.addErr("followup.interval_days must be > 0")
	}
	if out.FollowUp.MaxFollowUps <= 0 {
		res.addErr("followup.max_followups must be > 0")
	} else if out.FollowUp.MaxFollowUps > 5 {
		res.addWarn("followup.max_followups is %d; more than a few follow-ups rarely helps.", out.FollowUp.MaxFollowUps)
	}

	// email required fields if enabled (password not required here; it lives in the keychain)
	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if out.Email.IMAPPort == 0 {
			res.addErr("email.imap_port is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Mailbox) == "" {
			res.addErr("email.mailbox is required when email.enabled=true")
		}
		if out.Email.MaxMessages <= 0 {
			res.addErr("email.max_messages must be > 0")
		}
	}

	if out.Sentiment.Endpoint != "" {
		if u, err := url.Parse(out.Sentiment.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			res.addErr("sentiment.endpoint must be an absolute URL")
		}
	}
	neg := map[string]bool{}
	for _, w := range out.Sentiment.Negative {
		neg[strings.ToLower(w)] = true
	}
	for _, w := range out.Sentiment.Positive {
		if neg[strings.ToLower(w)] {
			res.addWarn("sentiment keyword appears in both positive and negative: %q", w)
		}
	}

	if out.Scrape.Enabled {
		if len(out.Scrape.SearchURLs) == 0 {
			res.addWarn("scrape.enabled is true but scrape.search_urls is empty; nothing will be scraped.")
		}
		for _, s := range out.Scrape.SearchURLs {
			if u, err := url.Parse(s); err != nil || u.Scheme == "" || u.Host == "" {
				res.addErr("scrape.search_urls: %q is not an absolute URL", s)
			}
		}
		if out.Scrape.RequestsPerSecond <= 0 {
			res.addErr("scrape.requests_per_second must be > 0")
		}
	}

	switch out.Logging.Format {
	case "", "text", "json":
	default:
		res.addWarn("logging.format %q is unknown; using text.", out.Logging.Format)
	}

	return out, res
}
