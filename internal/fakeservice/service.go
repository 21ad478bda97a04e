// Package fakeservice is an in-process implementation of the memory and
// governance admin API. It backs the harness tests and the mock command.
//
// State lives in a SQLite store (in memory unless a database path is given).
// Snapshots are keyed by (symbol, date, focus, preset, role), so repeated
// writes for the same date are skipped, and outcomes resolve once a
// snapshot's horizon has elapsed relative to the configured latest candle
// date.
package fakeservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/memcheck/internal/store"
	"github.com/roach88/memcheck/internal/verify"
)

// DefaultPrefix matches the service's admin route prefix.
const DefaultPrefix = "/api/fractal/v2.1/admin"

// DefaultMinResolved is the number of resolved outcomes a policy dry-run
// needs before it proposes a change.
const DefaultMinResolved = 50

// Options configures a Service.
type Options struct {
	// Prefix is the admin route prefix. Defaults to DefaultPrefix.
	Prefix string
	// AsofDate is the date new snapshots are written for, and the latest
	// candle date outcomes resolve against. Defaults to today (UTC).
	AsofDate string
	// MinResolved gates dry-run proposals. Defaults to DefaultMinResolved.
	MinResolved int
	// DBPath is the SQLite database file. Empty keeps state in memory.
	DBPath string
	// Logger receives one line per request. Defaults to discarding.
	Logger *slog.Logger
}

// Service serves the admin API.
type Service struct {
	opts   Options
	db     *store.Store
	router chi.Router
}

// New creates a Service and opens its store. Call Close when done.
func New(opts Options) (*Service, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	opts.Prefix = "/" + strings.Trim(opts.Prefix, "/")
	if opts.AsofDate == "" {
		opts.AsofDate = time.Now().UTC().Format(dateLayout)
	}
	if opts.MinResolved <= 0 {
		opts.MinResolved = DefaultMinResolved
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	path := opts.DBPath
	if path == "" {
		path = store.MemoryPath
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Service{opts: opts, db: db}
	s.router = s.routes()
	return s, nil
}

// Close releases the store.
func (s *Service) Close() error {
	return s.db.Close()
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Seed writes a full snapshot day for symbol, as if a previous run had
// happened on date. Used to give the resolver matured snapshots.
func (s *Service) Seed(ctx context.Context, symbol, date string) error {
	_, _, _, err := s.writeDay(ctx, symbol, date)
	return err
}

// AddProposal appends an entry to the policy history of symbol.
func (s *Service) AddProposal(ctx context.Context, symbol string, p map[string]any) error {
	return s.db.WriteProposal(ctx, symbol, p)
}

func (s *Service) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route(s.opts.Prefix, func(r chi.Router) {
		r.Route("/memory", func(r chi.Router) {
			r.Post("/write-snapshots", s.handleWriteSnapshots)
			r.Get("/snapshots/latest", s.handleLatestSnapshot)
			r.Get("/snapshots/count", s.handleCountSnapshots)
			r.Post("/resolve-outcomes", s.handleResolveOutcomes)
			r.Get("/forward-stats", s.handleForwardStats)
			r.Get("/calibration", s.handleCalibration)
			r.Get("/attribution/summary", s.handleAttributionSummary)
		})
		r.Route("/governance/policy", func(r chi.Router) {
			r.Post("/dry-run", s.handlePolicyDryRun)
			r.Get("/current", s.handleCurrentPolicy)
			r.Get("/history", s.handlePolicyHistory)
		})
	})
	return r
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.opts.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

// symbolParam returns the symbol query parameter, defaulting to BTC.
func symbolParam(r *http.Request) string {
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		return sym
	}
	return "BTC"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError mirrors the service's in-band error envelope.
func writeServiceError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]any{"error": true, "message": message})
}

func (s *Service) handleWriteSnapshots(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	written, skipped, breakdown, err := s.writeDay(r.Context(), symbol, s.opts.AsofDate)
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":         symbol,
		"asofDate":       s.opts.AsofDate,
		"written":        written,
		"skipped":        skipped,
		"focusBreakdown": breakdown,
	})
}

func (s *Service) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	focus := r.URL.Query().Get("focus")
	if focus == "" {
		focus = verify.DefaultFocus
	}
	snap, err := s.db.LatestSnapshot(r.Context(), symbol, focus, "ACTIVE", verify.DefaultPreset)
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "snapshot": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found": true,
		"snapshot": map[string]any{
			"symbol":       snap.Key.Symbol,
			"asofDate":     snap.Key.AsofDate,
			"focus":        snap.Key.Focus,
			"role":         snap.Key.Role,
			"preset":       snap.Key.Preset,
			"tier":         snap.Tier,
			"maturityDate": snap.MaturityDate,
			"kernelDigest": snap.Digest,
			"tierWeights":  snap.Weights,
		},
	})
}

func (s *Service) handleCountSnapshots(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	total, byRole, err := s.count(r.Context(), symbol)
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"total":  total,
		"byRole": byRole,
	})
}

func (s *Service) handleResolveOutcomes(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	resolved, skipped, byFocus, reasons, err := s.resolve(r.Context(), symbol, s.opts.AsofDate)
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":           symbol,
		"latestCandleDate": s.opts.AsofDate,
		"resolved":         resolved,
		"skipped":          skipped,
		"byFocus":          byFocus,
		"reasons":          reasons,
	})
}

// stats summarizes a set of outcomes.
type stats struct {
	Count       int     `json:"count"`
	HitRate     float64 `json:"hitRate"`
	AvgReturn   float64 `json:"avgRealizedReturnPct"`
	BandHitRate float64 `json:"bandHitRate"`
	AvgError    float64 `json:"avgError"`
}

func summarize(outs []store.Outcome) stats {
	st := stats{Count: len(outs)}
	if len(outs) == 0 {
		return st
	}
	var hits, band int
	var ret, errSum float64
	for _, o := range outs {
		if o.Hit {
			hits++
		}
		if o.InsideBand {
			band++
		}
		ret += o.RealizedReturn
		errSum += math.Abs(o.RealizedReturn - o.ExpectedReturn)
	}
	n := float64(len(outs))
	st.HitRate = round(float64(hits) / n)
	st.BandHitRate = round(float64(band) / n)
	st.AvgReturn = round(ret / n)
	st.AvgError = round(errSum / n)
	return st
}

func round(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func (s *Service) handleForwardStats(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	all, err := s.db.Outcomes(r.Context(), store.OutcomeFilter{Symbol: symbol})
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}

	byPreset := map[string]stats{}
	byRole := map[string]stats{}
	groupedPreset := map[string][]store.Outcome{}
	groupedRole := map[string][]store.Outcome{}
	for _, o := range all {
		groupedPreset[o.Key.Preset] = append(groupedPreset[o.Key.Preset], o)
		groupedRole[o.Key.Role] = append(groupedRole[o.Key.Role], o)
	}
	for k, v := range groupedPreset {
		byPreset[k] = summarize(v)
	}
	for k, v := range groupedRole {
		byRole[k] = summarize(v)
	}

	total := summarize(all)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":               symbol,
		"totalResolved":        total.Count,
		"hitRate":              total.HitRate,
		"avgRealizedReturnPct": total.AvgReturn,
		"byPreset":             byPreset,
		"byRole":               byRole,
	})
}

func (s *Service) handleCalibration(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	q := r.URL.Query()
	focus := q.Get("focus")
	if focus == "" {
		focus = verify.DefaultFocus
	}
	preset := q.Get("preset")
	if preset == "" {
		preset = verify.DefaultPreset
	}
	outs, err := s.db.Outcomes(r.Context(), store.OutcomeFilter{Symbol: symbol, Focus: focus, Preset: preset})
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}
	st := summarize(outs)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":      symbol,
		"focus":       focus,
		"preset":      preset,
		"hitRate":     st.HitRate,
		"bandHitRate": st.BandHitRate,
		"avgError":    st.AvgError,
		"count":       st.Count,
	})
}

func (s *Service) handleAttributionSummary(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	all, err := s.db.Outcomes(r.Context(), store.OutcomeFilter{Symbol: symbol})
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}

	byTier := map[string][]store.Outcome{}
	for _, o := range all {
		byTier[o.Tier] = append(byTier[o.Tier], o)
	}

	tierAccuracy := make([]map[string]any, 0, len(verify.Tiers))
	dominant, best := verify.Tiers[0], -1.0
	for _, tier := range verify.Tiers {
		st := summarize(byTier[tier])
		tierAccuracy = append(tierAccuracy, map[string]any{
			"tier":    tier,
			"hitRate": st.HitRate,
			"total":   st.Count,
		})
		if st.Count > 0 && st.HitRate > best {
			dominant, best = tier, st.HitRate
		}
	}

	insights := []string{}
	if len(all) == 0 {
		insights = append(insights, "No resolved outcomes yet")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":        symbol,
		"period":        map[string]any{"from": r.URL.Query().Get("from"), "to": s.opts.AsofDate},
		"totalOutcomes": len(all),
		"tierAccuracy":  tierAccuracy,
		"dominantTier":  dominant,
		"insights":      insights,
	})
}

// currentConfig is the active policy. The fake never changes it.
func currentConfig() map[string]any {
	return map[string]any{
		"tierWeights": map[string]any{"TIMING": 0.2, "TACTICAL": 0.3, "STRUCTURE": 0.5},
		"horizonWeights": map[string]any{
			"7d": 0.1, "14d": 0.1, "30d": 0.2, "90d": 0.2, "180d": 0.2, "365d": 0.2,
		},
		"regimeMultipliers": map[string]any{"LOW_VOL": 1.0, "NORMAL": 1.0, "HIGH_VOL": 0.8},
	}
}

func (s *Service) handlePolicyDryRun(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	outs, err := s.db.Outcomes(r.Context(), store.OutcomeFilter{Symbol: symbol})
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}
	if len(outs) < s.opts.MinResolved {
		writeJSON(w, http.StatusOK, map[string]any{
			"mode":                verify.DryRunMode,
			"success":             false,
			"message":             "Insufficient resolved outcomes for policy update",
			"guardrailsPass":      false,
			"guardrailViolations": []string{},
		})
		return
	}

	proposed := currentConfig()
	proposed["tierWeights"] = map[string]any{"TIMING": 0.15, "TACTICAL": 0.35, "STRUCTURE": 0.5}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":                verify.DryRunMode,
		"success":             true,
		"message":             "Policy update calculated",
		"guardrailsPass":      true,
		"guardrailViolations": []string{},
		"currentConfig":       currentConfig(),
		"proposedConfig":      proposed,
	})
}

func (s *Service) handleCurrentPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbolParam(r),
		"config": currentConfig(),
	})
}

func (s *Service) handlePolicyHistory(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	proposals, err := s.db.Proposals(r.Context(), symbol)
	if err != nil {
		writeServiceError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"count":     len(proposals),
		"proposals": proposals,
	})
}

// Client returns an HTTP client that serves every request in-process,
// whatever host the request names.
func (s *Service) Client() *http.Client {
	return &http.Client{Transport: handlerTransport{h: s}}
}

type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
