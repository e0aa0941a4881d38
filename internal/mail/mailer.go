// Package mail sends generated reports by email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	From        string
	To          []string
	Cc          []string
	Subject     string
	Text        string
	Attachments []Attachment
	Date        time.Time
}

// ReportSubject formats the subject line for a venue report.
func ReportSubject(venue, title string) string {
	return fmt.Sprintf("%s - %s", venue, title)
}

// Validate checks the fields every transport needs.
func (m *Message) Validate() error {
	if m.From == "" {
		return errors.New("sender address is required")
	}
	if len(m.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	if m.Subject == "" {
		return errors.New("subject is required")
	}
	return nil
}

// Recipients returns every envelope recipient, To before Cc.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}

// LogMailer logs messages instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("message validation failed: %w", err)
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Name)
	}
	logger.InfoContext(ctx, "mail not sent (log mailer)",
		"to", msg.To, "cc", msg.Cc, "subject", msg.Subject, "attachments", names)
	return nil
}
