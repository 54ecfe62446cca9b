package domain

import "time"

// InboundMessage is one unseen mailbox message as handed over by a mailbox
// provider. DecodeErr is set when the body could not be decoded; such a
// message can still be matched by sender but is never recorded.
type InboundMessage struct {
	ID         string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
	DecodeErr  error
}
