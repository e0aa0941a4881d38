package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/ticketsales/internal/aggregate"
	"example.com/ticketsales/internal/config"
	"example.com/ticketsales/internal/domain"
	spg "example.com/ticketsales/internal/storage/postgres"
	"example.com/ticketsales/internal/tickettailor"
)

// RunFunc performs one aggregation over the upstream API.
type RunFunc func(ctx context.Context, includePast bool) (*aggregate.Aggregator, error)

// Enqueuer accepts snapshots for asynchronous storage.
type Enqueuer interface {
	Enqueue(s domain.Snapshot) bool
}

// SnapshotStore is the read side of the snapshot table.
type SnapshotStore interface {
	Ready(ctx context.Context) error
	QueryTotals(ctx context.Context, f spg.SnapshotFilter) (spg.SnapshotTotals, error)
	QueryBucketsDaily(ctx context.Context, f spg.SnapshotFilter) ([]spg.SnapshotBucket, error)
}

type ServerDeps struct {
	Cfg      config.Config
	Run      RunFunc
	Ingestor Enqueuer
	Store    SnapshotStore
	Now      func() time.Time
	NewRunID func() string
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRunError maps aggregation failures onto problem responses; upstream
// failures are 502.
func writeRunError(w http.ResponseWriter, err error) {
	var apiErr *tickettailor.APIError
	switch {
	case errors.As(err, &apiErr):
		WriteProblem(w, http.StatusBadGateway, "upstream error", apiErr.Error(), nil)
	case errors.Is(err, domain.ErrStructural):
		WriteProblem(w, http.StatusBadGateway, "unexpected upstream data", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		WriteProblem(w, http.StatusGatewayTimeout, "upstream timeout", err.Error(), nil)
	default:
		WriteProblem(w, http.StatusInternalServerError, "aggregation failed", err.Error(), nil)
	}
}

func parseBoolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := d.Store.Ready(r.Context()); err != nil {
		WriteProblem(w, http.StatusServiceUnavailable, "not ready", "database not reachable", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// --- Summary ---

func (d *ServerDeps) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	past, err := parseBoolParam(r.URL.Query().Get("past_events"))
	if err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "past_events must be a boolean",
			map[string][]string{"past_events": {"must be a boolean"}})
		return
	}

	agg, err := d.Run(r.Context(), past)
	if err != nil {
		log.Printf("[api] summary FAILED: past_events=%t err=%v", past, err)
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg.Result())
}

// --- Snapshots ---

type snapshotReq struct {
	PastEvents bool `json:"past_events"`
}

type snapshotResp struct {
	RunID         string `json:"run_id"`
	AcceptedCount int    `json:"accepted_count"`
}

func (d *ServerDeps) HandlePostSnapshots(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req snapshotReq
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}

	agg, err := d.Run(r.Context(), req.PastEvents)
	if err != nil {
		log.Printf("[api] snapshot run FAILED: err=%v", err)
		writeRunError(w, err)
		return
	}

	runID := d.NewRunID()
	capturedAt := d.Now()
	accepted := 0
	for _, rec := range agg.SortedOccurrences() {
		if ok := d.Ingestor.Enqueue(domain.NewSnapshot(runID, rec, capturedAt)); !ok {
			log.Printf("[api] snapshot queue full: run=%s accepted=%d", runID, accepted)
			Problem{
				Title:  "overloaded",
				Status: http.StatusServiceUnavailable,
				Detail: "ingest queue is full, please retry",
				Meta:   map[string]any{"run_id": runID, "accepted_count": accepted},
			}.Write(w)
			return
		}
		accepted++
	}
	log.Printf("[api] queued %d snapshots: run=%s", accepted, runID)

	writeJSON(w, http.StatusAccepted, snapshotResp{RunID: runID, AcceptedCount: accepted})
}

type totalsResp struct {
	Totals  spg.SnapshotTotals   `json:"totals"`
	Buckets []spg.SnapshotBucket `json:"buckets,omitempty"`
}

func (d *ServerDeps) HandleGetSnapshotTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	f := spg.SnapshotFilter{
		Venue: strings.TrimSpace(q.Get("venue")),
		From:  q.Get("from"),
		To:    q.Get("to"),
	}
	groupBy := q.Get("group_by")

	var errs []domain.FieldError
	for _, p := range []struct{ name, val string }{{"from", f.From}, {"to", f.To}} {
		if p.val == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, p.val); err != nil {
			errs = append(errs, domain.FieldError{Field: p.name, Msg: "must be YYYY-MM-DD"})
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		errs = append(errs, domain.FieldError{Field: "from", Msg: "must not be after to"})
	}
	if groupBy != "" && groupBy != "day" {
		errs = append(errs, domain.FieldError{Field: "group_by", Msg: "only 'day' is supported"})
	}
	if len(errs) > 0 {
		prob := map[string][]string{}
		for _, fe := range errs {
			prob[fe.Field] = append(prob[fe.Field], fe.Msg)
		}
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "one or more parameters are invalid", prob)
		return
	}

	ctx := r.Context()
	tot, err := d.Store.QueryTotals(ctx, f)
	if err != nil {
		WriteProblem(w, http.StatusInternalServerError, "query error", err.Error(), nil)
		return
	}
	resp := totalsResp{Totals: tot}
	if groupBy == "day" {
		bs, err := d.Store.QueryBucketsDaily(ctx, f)
		if err != nil {
			WriteProblem(w, http.StatusInternalServerError, "query error", err.Error(), nil)
			return
		}
		resp.Buckets = bs
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Router ---

func (d *ServerDeps) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.HandleHealthz)
	mux.HandleFunc("/readyz", d.HandleReadyz)

	var getSummary http.Handler = http.HandlerFunc(d.HandleGetSummary)
	getSummary = RateLimitPerMinute(d.Cfg.SummaryMaxPerMin, d.Now)(getSummary)
	getSummary = APIKeyAuth(d.Cfg.APIKeys)(getSummary)
	mux.Handle("/summary", getSummary)

	var postSnapshots http.Handler = http.HandlerFunc(d.HandlePostSnapshots)
	postSnapshots = RateLimitPerMinute(d.Cfg.SummaryMaxPerMin, d.Now)(postSnapshots)
	postSnapshots = BodyLimit(d.Cfg.MaxBodyBytes)(postSnapshots)
	postSnapshots = RequireJSON(postSnapshots)
	postSnapshots = APIKeyAuth(d.Cfg.APIKeys)(postSnapshots)
	mux.Handle("/snapshots", postSnapshots)

	var getTotals http.Handler = http.HandlerFunc(d.HandleGetSnapshotTotals)
	getTotals = RateLimitPerMinute(d.Cfg.RateLimitPerMin, d.Now)(getTotals)
	getTotals = APIKeyAuth(d.Cfg.APIKeys)(getTotals)
	mux.Handle("/snapshots/totals", getTotals)

	return mux
}
