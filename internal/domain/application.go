package domain

import "time"

type Status string

const (
	StatusSent       Status = "Sent"
	StatusFollowedUp Status = "Followed-up"
	StatusResponded  Status = "Responded"
)

type Application struct {
	ID               int64      `json:"id"`
	CompanyID        int64      `json:"companyId"`
	Subject          string     `json:"subject"`
	Body             string     `json:"body,omitempty"`
	SentAt           time.Time  `json:"sentAt"`
	Status           Status     `json:"status"`
	ResponseReceived bool       `json:"responseReceived"`
	ResponseDate     *time.Time `json:"responseDate,omitempty"`
	FollowUpCount    int        `json:"followUpCount"`
	NextFollowUpDate *time.Time `json:"nextFollowUpDate,omitempty"`
	AIReviewed       bool       `json:"aiReviewed"`
}

type NewApplication struct {
	CompanyID  int64  `json:"companyId"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	AIReviewed bool   `json:"aiReviewed"`
}

// OutstandingApplication is the reconciliation view of an application that
// has not been answered yet, keyed by the counterparty address.
type OutstandingApplication struct {
	ApplicationID int64
	CompanyID     int64
	CompanyEmail  string
	SentAt        time.Time
}

// FollowUpCandidate is one row of the follow-up queue.
type FollowUpCandidate struct {
	ApplicationID    int64      `json:"applicationId"`
	CompanyID        int64      `json:"companyId"`
	CompanyName      string     `json:"companyName"`
	Email            string     `json:"email"`
	ContactName      string     `json:"contactName"`
	Priority         Priority   `json:"priority"`
	Subject          string     `json:"subject"`
	SentAt           time.Time  `json:"sentAt"`
	FollowUpCount    int        `json:"followUpCount"`
	NextFollowUpDate *time.Time `json:"nextFollowUpDate,omitempty"`
	DaysAgo          int        `json:"daysAgo"`
}
