package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func snapshotColumns(alias string) string {
	p := alias + "."
	return p + "symbol, " + p + "asof_date, " + p + "focus, " + p + "preset, " + p + "role, " +
		p + "tier, " + p + "maturity_date, " + p + "kernel_digest, " + p + "tier_weights"
}

func snapshotOrder(alias string) string {
	p := alias + "."
	return p + "asof_date ASC, " + p + "focus ASC, " + p + "preset ASC, " + p + "role COLLATE BINARY ASC"
}

// scanSnapshot reads the snapshotColumns, followed by any extra columns.
func scanSnapshot(row scanner, extra ...any) (Snapshot, error) {
	var snap Snapshot
	var digest, weights string
	dest := []any{
		&snap.Key.Symbol,
		&snap.Key.AsofDate,
		&snap.Key.Focus,
		&snap.Key.Preset,
		&snap.Key.Role,
		&snap.Tier,
		&snap.MaturityDate,
		&digest,
		&weights,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Snapshot{}, err
	}
	if err := unmarshalJSON("kernel digest", digest, &snap.Digest); err != nil {
		return Snapshot{}, err
	}
	if err := unmarshalJSON("tier weights", weights, &snap.Weights); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot for the given symbol,
// focus, role and preset, or nil if there is none.
func (s *Store) LatestSnapshot(ctx context.Context, symbol, focus, role, preset string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns("s")+`
		FROM snapshots s
		WHERE s.symbol = ? AND s.focus = ? AND s.role = ? AND s.preset = ?
		ORDER BY s.asof_date DESC
		LIMIT 1
	`, symbol, focus, role, preset)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return &snap, nil
}

// CountByRole returns the number of snapshots of symbol per role.
// Roles without snapshots are absent from the map.
func (s *Store) CountByRole(ctx context.Context, symbol string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, COUNT(*)
		FROM snapshots
		WHERE symbol = ?
		GROUP BY role
		ORDER BY role COLLATE BINARY ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("count snapshots: %w", err)
		}
		counts[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}
	return counts, nil
}

// Outcomes returns the resolved outcomes matching filter in key order.
func (s *Store) Outcomes(ctx context.Context, filter OutcomeFilter) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.symbol, o.asof_date, o.focus, o.preset, o.role, o.tier,
			o.hit, o.realized_return, o.expected_return, o.inside_band, o.resolved_at
		FROM outcomes o
		WHERE o.symbol = ?
			AND (? = '' OR o.focus = ?)
			AND (? = '' OR o.preset = ?)
		ORDER BY `+snapshotOrder("o"),
		filter.Symbol,
		filter.Focus, filter.Focus,
		filter.Preset, filter.Preset,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outs []Outcome
	for rows.Next() {
		var o Outcome
		var hit, inside int
		if err := rows.Scan(
			&o.Key.Symbol, &o.Key.AsofDate, &o.Key.Focus, &o.Key.Preset, &o.Key.Role,
			&o.Tier, &hit, &o.RealizedReturn, &o.ExpectedReturn, &inside, &o.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("query outcomes: %w", err)
		}
		o.Hit = hit == 1
		o.InsideBand = inside == 1
		outs = append(outs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	return outs, nil
}

// Proposals returns the policy proposals of symbol in insertion order.
// The result is never nil.
func (s *Store) Proposals(ctx context.Context, symbol string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM proposals WHERE symbol = ? ORDER BY seq ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	proposals := []map[string]any{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("query proposals: %w", err)
		}
		var body map[string]any
		if err := unmarshalJSON("proposal", text, &body); err != nil {
			return nil, fmt.Errorf("query proposals: %w", err)
		}
		proposals = append(proposals, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	return proposals, nil
}
