package fakeservice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/memcheck/internal/store"
	"github.com/roach88/memcheck/internal/verify"
)

const dateLayout = time.DateOnly

// horizonDays parses "30d" style horizons.
func horizonDays(focus string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(focus, "d"))
	if err != nil {
		return 0
	}
	return n
}

// tierFor maps a horizon onto the attribution tier that owns it.
func tierFor(focus string) string {
	switch days := horizonDays(focus); {
	case days <= 14:
		return "TIMING"
	case days <= 90:
		return "TACTICAL"
	default:
		return "STRUCTURE"
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// buildDay returns one snapshot per (horizon, preset, role) for date, in
// that nesting order. Field values are derived from the indices so every
// run produces the same day.
func buildDay(symbol string, day time.Time) []store.Snapshot {
	date := day.Format(dateLayout)
	snaps := make([]store.Snapshot, 0, verify.ExpectedSnapshotTotal)
	for hi, focus := range verify.Horizons {
		for pi, preset := range verify.Presets {
			for ri, role := range verify.Roles {
				seed := hi + pi + ri
				snaps = append(snaps, store.Snapshot{
					Key:          store.SnapshotKey{Symbol: symbol, AsofDate: date, Focus: focus, Preset: preset, Role: role},
					Tier:         tierFor(focus),
					MaturityDate: day.AddDate(0, 0, horizonDays(focus)).Format(dateLayout),
					Digest: store.KernelDigest{
						Direction:      []string{"BUY", "SELL", "HOLD"}[seed%3],
						Mode:           []string{"TREND_FOLLOW", "COUNTER_TREND", "WAIT"}[seed%3],
						FinalSize:      float64(pi+1) * 0.25,
						ConsensusIndex: 0.5 + float64(hi)*0.05,
						ConflictLevel:  []string{"NONE", "LOW", "MODERATE"}[ri+pi%2],
					},
					Weights: store.TierWeights{Structure: 0.5, Tactical: 0.3, Timing: 0.2},
				})
			}
		}
	}
	return snaps
}

// writeDay writes a full snapshot day for symbol. Existing keys are skipped.
func (s *Service) writeDay(ctx context.Context, symbol, date string) (written, skipped int, breakdown map[string]map[string]int, err error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("invalid asofDate %q: %w", date, err)
	}

	snaps := buildDay(symbol, day)
	inserted, err := s.db.WriteSnapshots(ctx, snaps)
	if err != nil {
		return 0, 0, nil, err
	}

	breakdown = make(map[string]map[string]int, len(verify.Horizons))
	for _, h := range verify.Horizons {
		breakdown[h] = map[string]int{"written": 0, "skipped": 0}
	}
	for i, snap := range snaps {
		if inserted[i] {
			written++
			breakdown[snap.Key.Focus]["written"]++
		} else {
			skipped++
			breakdown[snap.Key.Focus]["skipped"]++
		}
	}
	return written, skipped, breakdown, nil
}

// count returns the total and per-role snapshot counts for symbol.
// Every role is present, with zero when it has no snapshots.
func (s *Service) count(ctx context.Context, symbol string) (int, map[string]int, error) {
	stored, err := s.db.CountByRole(ctx, symbol)
	if err != nil {
		return 0, nil, err
	}
	byRole := make(map[string]int, len(verify.Roles))
	total := 0
	for _, role := range verify.Roles {
		byRole[role] = stored[role]
		total += stored[role]
	}
	return total, byRole, nil
}

// outcomeFor scores a matured snapshot. Returns and hits are a fixed
// function of the horizon and preset.
func outcomeFor(snap store.Snapshot, latestCandle string) store.Outcome {
	hi := indexOf(verify.Horizons, snap.Key.Focus)
	pi := indexOf(verify.Presets, snap.Key.Preset)
	realized := float64((hi*7+pi*3)%11) - 4
	expected := 2.0
	if snap.Digest.Direction == "SELL" {
		expected = -2.0
	}
	return store.Outcome{
		Tier:           snap.Tier,
		Hit:            (realized >= 0) == (expected >= 0),
		RealizedReturn: realized,
		ExpectedReturn: expected,
		InsideBand:     realized-expected <= 3 && expected-realized <= 3,
		ResolvedAt:     latestCandle,
	}
}

// resolve creates outcomes for every matured, unresolved snapshot.
func (s *Service) resolve(ctx context.Context, symbol, latestCandle string) (resolved, skipped int, byFocus, reasons map[string]int, err error) {
	res, err := s.db.Resolve(ctx, symbol, func(snap store.Snapshot) (store.Outcome, bool) {
		if snap.MaturityDate > latestCandle {
			return store.Outcome{}, false
		}
		return outcomeFor(snap, latestCandle), true
	})
	if err != nil {
		return 0, 0, nil, nil, err
	}

	byFocus = make(map[string]int, len(verify.Horizons))
	for _, h := range verify.Horizons {
		byFocus[h] = 0
	}
	for _, o := range res.Resolved {
		byFocus[o.Key.Focus]++
	}

	reasons = map[string]int{}
	if res.AlreadyResolved > 0 {
		reasons["ALREADY_RESOLVED"] = res.AlreadyResolved
	}
	if res.NotMatured > 0 {
		reasons["NOT_MATURED"] = res.NotMatured
	}
	return len(res.Resolved), res.AlreadyResolved + res.NotMatured, byFocus, reasons, nil
}
