// sales-extract writes Ticket Tailor sales or issued tickets to a CSV file.
//
// Without --all the event series are listed by date and one is chosen,
// either interactively or with --event. With --snapshot the per-occurrence
// sales figures are also stored in Postgres.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
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
	"example.com/ticketsales/internal/ingest"
	"example.com/ticketsales/internal/publish"
	"example.com/ticketsales/internal/report"
	spg "example.com/ticketsales/internal/storage/postgres"
	"example.com/ticketsales/internal/tickettailor"
)

type options struct {
	pastEvents bool
	all        bool
	tickets    bool
	sales      bool
	event      int
	outDir     string
	snapshot   bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("sales-extract", pflag.ContinueOnError)
	flagSet.BoolVar(&opts.pastEvents, "past-events", false, "include event series with no upcoming occurrences")
	flagSet.BoolVar(&opts.all, "all", false, "process every event series instead of selecting one")
	flagSet.BoolVar(&opts.tickets, "tickets", false, "write issued tickets with check-in times")
	flagSet.BoolVar(&opts.sales, "sales", false, "write per-occurrence ticket sales")
	flagSet.IntVar(&opts.event, "event", -1, "select event number N from the listing without prompting")
	flagSet.StringVar(&opts.outDir, "out-dir", "", "directory for the CSV file (default: REPORT_DIR)")
	flagSet.BoolVar(&opts.snapshot, "snapshot", false, "also store occurrence sales in Postgres")
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
	if opts.tickets == opts.sales {
		return errors.New("exactly one of --tickets or --sales is required")
	}

	cfg := config.Parse()
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if opts.outDir == "" {
		opts.outDir = cfg.ReportDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := tickettailor.NewClient(tickettailor.ClientConfig{
		BaseURL:           cfg.APIBaseURL,
		APIKey:            cfg.APIKey,
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return err
	}
	aggOpts := aggregate.Options{
		IncludePast: opts.pastEvents,
		WithTickets: opts.tickets,
		Resolver:    aggregate.ResolverConfig{Concurrency: cfg.Concurrency},
		Joiner:      aggregate.JoinerConfig{Location: loc, InspectFirst: cfg.InspectFirst},
	}

	series, err := aggregate.NewResolver(client, aggOpts.Resolver).Resolve(ctx, opts.pastEvents)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return errors.New("no event series found")
	}
	log.Printf("[extract] %d event series", len(series))

	if !opts.all {
		listed := sortByDate(series)
		var chosen domain.EventSeries
		if opts.event >= 0 {
			chosen, err = pick(listed, opts.event)
		} else {
			chosen, err = prompt(os.Stdin, os.Stdout, listed)
		}
		if err != nil {
			return err
		}
		series = []domain.EventSeries{chosen}
		log.Printf("[extract] selected %s (%s)", chosen.Name, chosen.ID)
	}

	agg, err := aggregate.FoldAll(ctx, client, series, aggOpts)
	if err != nil {
		return err
	}

	now := time.Now()
	var path string
	if opts.tickets {
		path, err = writeTickets(opts.outDir, agg.Tickets(), now)
	} else {
		path, err = writeSales(opts.outDir, agg.SortedOccurrences(), now)
	}
	if err != nil {
		return err
	}
	log.Printf("[extract] wrote %s", path)

	if opts.snapshot {
		return storeSnapshots(ctx, cfg, agg.SortedOccurrences(), now)
	}
	return nil
}

func writeSales(dir string, records []domain.OccurrenceRecord, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", errors.New("no occurrences to write")
	}
	return writeFile(filepath.Join(dir, report.SalesFileName(now)), func(f *os.File) error {
		return report.WriteSalesCSV(f, records)
	})
}

func writeTickets(dir string, tickets []domain.TicketRecord, now time.Time) (string, error) {
	if len(tickets) == 0 {
		return "", errors.New("no issued tickets to write")
	}
	report.SortTicketsByDate(tickets)
	return writeFile(filepath.Join(dir, report.TicketsFileName(tickets[0].EventName, now)), func(f *os.File) error {
		return report.WriteTicketsCSV(f, tickets)
	})
}

func writeFile(path string, write func(f *os.File) error) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func storeSnapshots(ctx context.Context, cfg config.Config, records []domain.OccurrenceRecord, capturedAt time.Time) error {
	db, err := spg.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	if err := db.RunMigration(ctx, cfg.MigrationPath); err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	// Sized so every record fits; the queue never rejects here.
	ingestor := ingest.NewIngestor(spg.NewWriter(db), max(len(records), 1), cfg.BatchMaxSize, cfg.BatchMaxWait)
	ingestCtx, stop := context.WithCancel(ctx)
	ingestor.Start(ingestCtx)

	runID := publish.NewRunID()
	for _, rec := range records {
		ingestor.Enqueue(domain.NewSnapshot(runID, rec, capturedAt))
	}
	stop()
	<-ingestor.Done()

	log.Printf("[extract] snapshots run=%s inserted=%d failed=%d", runID, ingestor.Inserted(), ingestor.Failed())
	if ingestor.Failed() > 0 {
		return fmt.Errorf("%d snapshots could not be stored", ingestor.Failed())
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `sales-extract writes Ticket Tailor sales or tickets to CSV.

Usage:
  sales-extract (--sales | --tickets) [flags]

Examples:
  # Pick an upcoming event and export its sales per occurrence
  sales-extract --sales

  # Export sales for every event, past ones included, and store snapshots
  sales-extract --sales --all --past-events --snapshot

  # Export the issued tickets of the third listed event
  sales-extract --tickets --event 2

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
