package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"internflow-engine/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const maxPartBytes = 6 << 20

// ParseMessage decodes a raw RFC 822 message into an InboundMessage. The ID
// is the Message-ID header and may be empty. Header fields that could be
// read are returned even when the body fails to decode; the error then
// wraps domain.ErrDecode.
func ParseMessage(raw []byte) (domain.InboundMessage, error) {
	var msg domain.InboundMessage
	if len(raw) == 0 {
		return msg, fmt.Errorf("%w: empty message", domain.ErrDecode)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return msg, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	defer mr.Close()

	msg.ID = strings.TrimSpace(mr.Header.Get("Message-Id"))
	if s, err := mr.Header.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(s)
	} else {
		msg.Subject = strings.TrimSpace(mr.Header.Get("Subject"))
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	} else {
		msg.From = strings.TrimSpace(mr.Header.Get("From"))
	}
	if d, err := mr.Header.Date(); err == nil {
		msg.ReceivedAt = d
	}

	plain, html, err := readTextParts(mr)
	if err != nil {
		return msg, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	switch {
	case strings.TrimSpace(plain) != "":
		msg.Body = strings.TrimSpace(plain)
	case html != "":
		msg.Body = htmlToText(html)
	}
	return msg, nil
}

// readTextParts keeps the longest text/plain and text/html inline parts.
func readTextParts(mr *mail.Reader) (plain, html string, err error) {
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return plain, html, nil
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return plain, html, err
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		b, err := io.ReadAll(io.LimitReader(p.Body, maxPartBytes))
		if err != nil {
			return plain, html, err
		}

		switch {
		case strings.HasPrefix(ct, "text/html"):
			if len(b) > len(html) {
				html = string(b)
			}
		case ct == "" || strings.HasPrefix(ct, "text/plain"):
			if len(b) > len(plain) {
				plain = string(b)
			}
		}
	}
}

func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style, head").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
