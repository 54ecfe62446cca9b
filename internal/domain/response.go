package domain

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

type Response struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"applicationId"`
	MessageID     string    `json:"messageId,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Sentiment     Sentiment `json:"sentiment"`
}

// ResponseInput carries one inbound reply into the store. MessageID is the
// provider's message identifier; when set, a second delivery of the same
// message is recognised and ignored.
type ResponseInput struct {
	MessageID string
	Subject   string
	Body      string
	Sentiment Sentiment
}

type ResponseOutcome struct {
	ResponseID int64 `json:"responseId"`
	// Transitioned is true only for the call that flipped the application
	// to responded.
	Transitioned bool `json:"transitioned"`
	// Duplicate is true when the message ID was already recorded; nothing
	// was written.
	Duplicate bool `json:"duplicate"`
}

// PositiveResponse is a report row for a recent positive reply.
type PositiveResponse struct {
	CompanyName string    `json:"companyName"`
	Subject     string    `json:"subject"`
	ReceivedAt  time.Time `json:"receivedAt"`
}
