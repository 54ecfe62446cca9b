package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"internflow-engine/internal/domain"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/jonboulle/clockwork"
)

type IMAPConfig struct {
	Host         string
	Port         int
	Username     string
	Mailbox      string
	LookbackDays int
	// Password is resolved on every fetch so a rotated secret is picked up
	// without a restart.
	Password  func() (string, error)
	TLSConfig *tls.Config
}

func (c IMAPConfig) addr() string {
	if strings.Contains(c.Host, ":") {
		return c.Host
	}
	port := c.Port
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// IMAP reads unseen mail with BODY.PEEK so nothing is flagged until the
// batch is finalized.
type IMAP struct {
	cfg   IMAPConfig
	clock clockwork.Clock
	log   *slog.Logger
}

func NewIMAP(cfg IMAPConfig, clock clockwork.Clock, log *slog.Logger) *IMAP {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &IMAP{cfg: cfg, clock: clock, log: log.With("component", "imap")}
}

// dial logs in. The returned stop detaches the client from ctx; until it is
// called, cancelling ctx closes the connection.
func (m *IMAP) dial(ctx context.Context) (c *imapclient.Client, stop func() bool, err error) {
	if m.cfg.Host == "" || m.cfg.Username == "" {
		return nil, nil, errors.New("imap host and username are required")
	}
	if m.cfg.Password == nil {
		return nil, nil, errors.New("imap password source is not configured")
	}
	password, err := m.cfg.Password()
	if err != nil {
		return nil, nil, fmt.Errorf("imap password: %w", err)
	}

	conn, err := m.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	c = imapclient.New(conn, nil)

	stop = context.AfterFunc(ctx, func() { _ = c.Close() })
	if err := c.Login(m.cfg.Username, password).Wait(); err != nil {
		stop()
		_ = c.Close()
		return nil, nil, fmt.Errorf("imap login: %w: %w", domain.ErrUnavailable, err)
	}
	return c, stop, nil
}

// connect dials and completes the TLS handshake, both bounded by ctx.
func (m *IMAP) connect(ctx context.Context) (net.Conn, error) {
	addr := m.cfg.addr()
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w: %w", domain.ErrUnavailable, err)
	}

	tlsCfg := m.cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsCfg = tlsCfg.Clone()
	}
	if tlsCfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			tlsCfg.ServerName = host
		}
	}
	conn := tls.Client(raw, tlsCfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("imap handshake: %w: %w", domain.ErrUnavailable, err)
	}
	return conn, nil
}

func (m *IMAP) FetchUnseen(ctx context.Context, max int) (*Batch, error) {
	if max <= 0 {
		max = 50
	}

	c, stop, err := m.dial(ctx)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			m.logout(c)
		}
	}()

	sel, err := c.Select(m.cfg.Mailbox, &imap.SelectOptions{ReadOnly: false}).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap select %q: %w: %w", m.cfg.Mailbox, domain.ErrUnavailable, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   m.clock.Now().AddDate(0, 0, -m.cfg.LookbackDays),
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w: %w", domain.ErrUnavailable, err)
	}

	uids := searchData.AllUIDs()
	// oldest first so replies are recorded in arrival order
	if len(uids) > max {
		uids = uids[:max]
	}
	if len(uids) == 0 {
		ok = stop()
		if !ok {
			return nil, fmt.Errorf("imap: %w: %w", domain.ErrUnavailable, ctx.Err())
		}
		return NewBatch(nil, func(context.Context, []string) error {
			m.logout(c)
			return nil
		}), nil
	}

	msgs, byID, err := m.fetch(ctx, c, sel.UIDValidity, uids)
	if err != nil {
		return nil, err
	}

	if ok = stop(); !ok {
		return nil, fmt.Errorf("imap: %w: %w", domain.ErrUnavailable, ctx.Err())
	}
	return NewBatch(msgs, func(fctx context.Context, handled []string) error {
		defer m.logout(c)
		detach := context.AfterFunc(fctx, func() { _ = c.Close() })
		defer detach()
		seen := make([]imap.UID, 0, len(handled))
		for _, id := range handled {
			if uid, found := byID[id]; found {
				seen = append(seen, uid)
			}
		}
		return markSeen(c, seen)
	}), nil
}

func (m *IMAP) fetch(ctx context.Context, c *imapclient.Client, validity uint32, uids []imap.UID) ([]domain.InboundMessage, map[string]imap.UID, error) {
	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	cmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = cmd.Close() }()

	out := make([]domain.InboundMessage, 0, len(uids))
	byID := make(map[string]imap.UID, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("imap fetch: %w: %w", domain.ErrUnavailable, err)
		}
		data := cmd.Next()
		if data == nil {
			break
		}
		buf, err := data.Collect()
		if err != nil {
			return nil, nil, fmt.Errorf("imap fetch collect: %w: %w", domain.ErrUnavailable, err)
		}

		msg, derr := ParseMessage(buf.FindBodySection(bodyAll))
		if derr != nil {
			msg.DecodeErr = derr
			m.log.Warn("message decode failed", "uid", buf.UID, "err", derr)
		}
		if buf.Envelope != nil {
			if len(buf.Envelope.From) > 0 {
				msg.From = buf.Envelope.From[0].Addr()
			}
			if msg.Subject == "" {
				msg.Subject = buf.Envelope.Subject
			}
			if msg.ReceivedAt.IsZero() {
				msg.ReceivedAt = buf.Envelope.Date
			}
		}
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = buf.InternalDate
		}
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("imap:%s:%d:%d", m.cfg.Mailbox, validity, buf.UID)
		}

		byID[msg.ID] = buf.UID
		out = append(out, msg)
	}
	if err := cmd.Close(); err != nil {
		return nil, nil, fmt.Errorf("imap fetch close: %w: %w", domain.ErrUnavailable, err)
	}
	return out, byID, nil
}

func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store seen: %w", err)
	}
	return nil
}

func (m *IMAP) logout(c *imapclient.Client) {
	if err := c.Logout().Wait(); err != nil {
		m.log.Debug("imap logout", "err", err)
	}
	_ = c.Close()
}

var _ Provider = (*IMAP)(nil)
