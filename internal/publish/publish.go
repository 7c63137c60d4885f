// Package publish forwards extracted wins to NATS.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/webzook/wintail/internal/logging"
	"github.com/webzook/wintail/pkg/wintail"
)

// Message headers set on every published win.
const (
	HeaderSource = "Wintail-Source"
	// HeaderMsgID is derived from the source and the win itself, so a
	// JetStream stream drops a win that is published again.
	HeaderMsgID = nats.MsgIdHdr
)

// Conn is the subset of *nats.Conn used by Publisher.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// Config holds NATS connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
	Timeout       time.Duration
}

// Publisher publishes each win as a JSON object to <prefix>.<source>.
type Publisher struct {
	conn   Conn
	prefix string
	logger *slog.Logger
}

// Connect dials the NATS server in cfg.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = "wintail"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", logging.Err(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return New(conn, cfg.SubjectPrefix, logger), nil
}

// New wraps an established connection.
func New(conn Conn, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), logger: logger}
}

// Subject returns the subject wins of sourceID are published to.
func (p *Publisher) Subject(sourceID string) string {
	return p.prefix + "." + subjectToken(sourceID)
}

// Publish sends wins in order and flushes. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, sourceID string, wins []wintail.Record) error {
	if len(wins) == 0 {
		return nil
	}
	subject := p.Subject(sourceID)
	for i, w := range wins {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal win: %w", err)
		}
		msg := nats.NewMsg(subject)
		msg.Data = data
		msg.Header.Set(HeaderSource, sourceID)
		msg.Header.Set(HeaderMsgID, MsgID(sourceID, data))
		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish win %d of %d to %s: %w", i+1, len(wins), subject, err)
		}
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	p.logger.Debug("published wins", logging.Source(sourceID), slog.String("subject", subject), slog.Int("count", len(wins)))
	return nil
}

// MsgID returns the deduplication ID of an encoded win from sourceID.
func MsgID(sourceID string, data []byte) string {
	name := make([]byte, 0, len(sourceID)+1+len(data))
	name = append(name, sourceID...)
	name = append(name, 0)
	name = append(name, data...)
	return uuid.NewSHA1(uuid.NameSpaceURL, name).String()
}

// Close closes the connection.
func (p *Publisher) Close() {
	p.conn.Close()
}

// subjectToken makes sourceID usable as a single subject token.
func subjectToken(sourceID string) string {
	if sourceID == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, sourceID)
}
