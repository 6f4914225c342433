// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mail delivers rendered chart reports by SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/pdiddy/natal-engine/internal/logging"
	"github.com/pdiddy/natal-engine/pkg/types"
)

// DefaultPort is the SMTP submission port.
const DefaultPort = 587

// Attachment is a file carried by a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is an outgoing mail.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ChartMessage builds the delivery mail for a report file.
func ChartMessage(to, firstName, reportPath string) (Message, error) {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return Message{}, fmt.Errorf("reading report: %w", err)
	}
	return Message{
		To:      to,
		Subject: "Birth Chart for " + firstName,
		Body:    fmt.Sprintf("Dear %s,\n\nPlease find attached your birth chart planetary positions.", firstName),
		Attachments: []Attachment{
			{Name: filepath.Base(reportPath), Data: data},
		},
	}, nil
}

// SMTP sends mail through a submission server, upgrading with STARTTLS
// when the server offers it.
type SMTP struct {
	cfg    types.MailConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewSMTP returns a sender for cfg. A zero port means DefaultPort.
func NewSMTP(cfg types.MailConfig, logger *zap.Logger) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return &SMTP{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// newMsg builds the outgoing message for msg, sent from the configured
// address.
func (s *SMTP) newMsg(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("sender %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(s.now())
	m.SetMessageIDWithValue(uuid.NewString() + "@natal-engine")
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return nil, fmt.Errorf("attaching %s: %w", a.Name, err)
		}
	}
	return m, nil
}

func (s *SMTP) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	return gomail.NewClient(s.cfg.Host, opts...)
}

// Send delivers msg. The context bounds the whole SMTP session.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled() {
		return fmt.Errorf("mail is not configured (need host and from)")
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail has no recipient")
	}

	m, err := s.newMsg(msg)
	if err != nil {
		return fmt.Errorf("composing mail: %w", err)
	}
	c, err := s.client()
	if err != nil {
		return fmt.Errorf("configuring SMTP client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}

	s.logger.Info("mail sent",
		zap.String("to", msg.To),
		zap.String("server", s.cfg.Host),
		zap.Int("attachments", len(msg.Attachments)))
	return nil
}
