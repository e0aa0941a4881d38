package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/ticketsales/internal/config"
	"example.com/ticketsales/internal/domain"
	"example.com/ticketsales/internal/mail"
	"example.com/ticketsales/internal/report"
)

type captureMailer struct {
	sent []*mail.Message
}

func (c *captureMailer) Send(_ context.Context, msg *mail.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func venue(name string) *domain.Venue {
	v := domain.NewVenue(name)
	v.Event("Car Parking - Lot A").Add(domain.Occurrence{
		ID:                 "ev_1",
		Start:              domain.Moment{Date: "2025-06-01", Time: "18:00"},
		End:                domain.Moment{Date: "2025-06-01", Time: "23:00"},
		TicketTypes:        []domain.TicketType{{QuantityTotal: 100}},
		TotalIssuedTickets: 80,
	})
	return v
}

func TestSelectVenues(t *testing.T) {
	t.Parallel()

	all := []*domain.Venue{venue("Arena"), venue("Main Stadium"), venue("Park")}
	if got := selectVenues(all, nil); len(got) != 3 {
		t.Fatalf("expected all venues, got %d", len(got))
	}
	got := selectVenues(all, []string{"Park", "Arena", "Nowhere"})
	if len(got) != 2 || got[0].Name() != "Arena" || got[1].Name() != "Park" {
		t.Fatalf("expected Arena and Park in aggregation order, got %v", got)
	}
}

func TestDeliverWritesAndMails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mailer := &captureMailer{}
	cfg := config.Config{ReportTitle: "Car Parking Sales Report", SMTPFrom: "reports@example.com"}
	out := sinks{
		mailer: mailer,
		recipients: config.Recipients{
			Default: config.RecipientList{To: []string{"ops@example.com"}},
		},
	}
	renderer := report.NewRenderer(report.RendererConfig{Title: cfg.ReportTitle, NamePrefix: "Car Parking - "})

	if err := deliver(context.Background(), renderer, out, cfg, "run-1", dir, venue("Main Stadium")); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(dir, "Main_Stadium.html"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(page), "Lot A") || strings.Contains(string(page), "Car Parking - Lot A") {
		t.Fatalf("expected prefix-stripped event name in report")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.Subject != "Main Stadium - Car Parking Sales Report" || msg.To[0] != "ops@example.com" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Attachments[0].Name != "Main_Stadium.html" || !bytes.Equal(msg.Attachments[0].Data, page) {
		t.Fatalf("expected the written report as attachment")
	}
}

func TestDeliverWithoutRecipients(t *testing.T) {
	t.Parallel()

	out := sinks{mailer: &captureMailer{}}
	renderer := report.NewRenderer(report.RendererConfig{Title: "Report"})
	if err := deliver(context.Background(), renderer, out, config.Config{}, "run-1", t.TempDir(), venue("Arena")); err == nil {
		t.Fatalf("expected error when no recipients are configured")
	}
}
