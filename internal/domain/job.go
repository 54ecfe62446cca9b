package domain

import "time"

type JobPost struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	CompanyName string     `json:"companyName"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	PostedDate  *time.Time `json:"postedDate,omitempty"`
	Source      string     `json:"source"`
	ScrapedAt   time.Time  `json:"scrapedAt"`
	Applied     bool       `json:"applied"`
}

type NewJobPost struct {
	Title       string     `json:"title"`
	CompanyName string     `json:"companyName"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	PostedDate  *time.Time `json:"postedDate,omitempty"`
	Source      string     `json:"source"`
}
