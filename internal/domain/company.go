package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Priority is an ordinal urgency scale: 1 is the most urgent, 5 the least.
// Follow-up queues sort ascending, so reversing the scale silently breaks
// the "most urgent first" ordering.
type Priority int

const (
	PriorityHighest Priority = 1
	PriorityDefault Priority = 3
	PriorityLowest  Priority = 5
)

func (p Priority) Valid() bool { return p >= PriorityHighest && p <= PriorityLowest }

type Company struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ContactName string    `json:"contactName,omitempty"`
	Website     string    `json:"website,omitempty"`
	Field       string    `json:"field,omitempty"`
	Priority    Priority  `json:"priority"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type NewCompany struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	ContactName string   `json:"contactName"`
	Website     string   `json:"website"`
	Field       string   `json:"field"`
	Priority    Priority `json:"priority"`
	Notes       string   `json:"notes"`
}

// NormalizeEmail reduces an address, with or without a display name, to the
// lowercase bare form used as the company identity key.
func NormalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	if i := strings.LastIndexByte(s, '<'); i >= 0 {
		s = s[i+1:]
		s = strings.TrimSuffix(strings.TrimSpace(s), ">")
	}
	return strings.ToLower(strings.TrimSpace(s))
}
