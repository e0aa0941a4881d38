// venue-reports renders one HTML sales report per venue from the upcoming
// events and can email it, announce it on RabbitMQ and store the venue
// summary in Redis.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"example.com/ticketsales/internal/aggregate"
	"example.com/ticketsales/internal/config"
	"example.com/ticketsales/internal/domain"
	"example.com/ticketsales/internal/mail"
	"example.com/ticketsales/internal/publish"
	"example.com/ticketsales/internal/report"
	"example.com/ticketsales/internal/tickettailor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type sinks struct {
	mailer     mail.Mailer
	recipients config.Recipients
	notifier   *publish.Notifier
	summaries  *publish.SummaryStore
}

func run() error {
	var (
		send         bool
		dryRun       bool
		notify       bool
		publishRedis bool
		outDir       string
		only         []string
	)
	flagSet := pflag.NewFlagSet("venue-reports", pflag.ContinueOnError)
	flagSet.BoolVar(&send, "send", false, "email each report to the venue's recipients")
	flagSet.BoolVar(&dryRun, "dry-run", false, "with --send, log the emails instead of sending them")
	flagSet.BoolVar(&notify, "notify", false, "publish a "+publish.ReportsGeneratedQueue+" message per report")
	flagSet.BoolVar(&publishRedis, "publish-redis", false, "store each venue summary in Redis")
	flagSet.StringVar(&outDir, "out-dir", "", "directory for the HTML reports (default: REPORT_DIR)")
	flagSet.StringSliceVar(&only, "venue", nil, "only report on these venues (repeatable)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg := config.Parse()
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if outDir == "" {
		outDir = cfg.ReportDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var out sinks
	if send {
		if out.recipients, err = config.LoadRecipients(cfg.RecipientsFile); err != nil {
			return err
		}
		if dryRun {
			out.mailer = mail.LogMailer{Logger: slog.Default()}
		} else {
			out.mailer = mail.NewSMTPMailer(mail.SMTPConfig{
				Host:     cfg.SMTPHost,
				Port:     cfg.SMTPPort,
				Username: cfg.SMTPUsername,
				Password: cfg.SMTPPassword,
				From:     cfg.SMTPFrom,
			})
		}
	}
	if notify {
		if out.notifier, err = publish.DialNotifier(cfg.AMQPURL, publish.ReportsGeneratedQueue, nil); err != nil {
			return err
		}
		defer out.notifier.Close()
	}
	if publishRedis {
		rdb, err := publish.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		out.summaries = publish.NewSummaryStore(rdb, cfg.RedisKeyPrefix, cfg.RedisSummaryTTL, nil)
	}

	client, err := tickettailor.NewClient(tickettailor.ClientConfig{
		BaseURL:           cfg.APIBaseURL,
		APIKey:            cfg.APIKey,
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return err
	}
	agg, err := aggregate.Run(ctx, client, aggregate.Options{
		Resolver: aggregate.ResolverConfig{Concurrency: cfg.Concurrency},
		Joiner:   aggregate.JoinerConfig{Location: loc},
	})
	if err != nil {
		return err
	}

	venues := selectVenues(agg.Venues(), only)
	if len(venues) == 0 {
		return errors.New("no venues to report on")
	}

	renderer := report.NewRenderer(report.RendererConfig{Title: cfg.ReportTitle, NamePrefix: cfg.EventNamePrefix})
	runID := publish.NewRunID()
	log.Printf("[reports] run=%s venues=%d", runID, len(venues))

	var errs []error
	for _, v := range venues {
		if err := deliver(ctx, renderer, out, cfg, runID, outDir, v); err != nil {
			log.Printf("[reports] %s FAILED: %v", v.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", v.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// selectVenues keeps venues named in only, or all of them when only is empty.
func selectVenues(venues []*domain.Venue, only []string) []*domain.Venue {
	if len(only) == 0 {
		return venues
	}
	keep := make(map[string]bool, len(only))
	for _, name := range only {
		keep[name] = true
	}
	var out []*domain.Venue
	for _, v := range venues {
		if keep[v.Name()] {
			out = append(out, v)
		}
	}
	return out
}

func deliver(ctx context.Context, renderer *report.Renderer, out sinks, cfg config.Config, runID, dir string, v *domain.Venue) error {
	var page bytes.Buffer
	if err := renderer.Render(&page, v); err != nil {
		return err
	}
	name := report.FileName(v.Name()) + ".html"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, page.Bytes(), 0o644); err != nil {
		return err
	}
	log.Printf("[reports] wrote %s", path)

	emailed := false
	if out.mailer != nil {
		rcpt, err := out.recipients.For(v.Name())
		if err != nil {
			return err
		}
		msg := &mail.Message{
			From:    cfg.SMTPFrom,
			To:      rcpt.To,
			Cc:      rcpt.Cc,
			Subject: mail.ReportSubject(v.Name(), cfg.ReportTitle),
			Text:    fmt.Sprintf("Please find attached the %s for %s.", cfg.ReportTitle, v.Name()),
			Attachments: []mail.Attachment{
				{Name: name, ContentType: "text/html; charset=UTF-8", Data: page.Bytes()},
			},
		}
		if err := out.mailer.Send(ctx, msg); err != nil {
			return err
		}
		emailed = true
	}

	if out.summaries != nil {
		if err := out.summaries.Store(ctx, runID, v); err != nil {
			return err
		}
	}

	if out.notifier != nil {
		return out.notifier.ReportGenerated(ctx, publish.ReportGenerated{
			RunID:       runID,
			Venue:       v.Name(),
			Title:       cfg.ReportTitle,
			File:        path,
			Events:      len(v.Events()),
			Emailed:     emailed,
			GeneratedAt: time.Now().UTC(),
		})
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `venue-reports renders an HTML sales report for every venue with
upcoming events.

Usage:
  venue-reports [flags]

Examples:
  # Write the reports to REPORT_DIR
  venue-reports

  # Email them using the recipients file, and announce each one
  venue-reports --send --notify

  # Check who would receive the Main Stadium report
  venue-reports --send --dry-run --venue "Main Stadium"

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
