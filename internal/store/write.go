package store

import (
	"context"
	"fmt"
)

// WriteSnapshots inserts snapshots in a single transaction.
// Uses ON CONFLICT DO NOTHING for idempotency: inserted[i] reports whether
// snaps[i] was new, and an existing row is never modified.
func (s *Store) WriteSnapshots(ctx context.Context, snaps []Snapshot) (inserted []bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write snapshots: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inserted = make([]bool, len(snaps))
	for i, snap := range snaps {
		digest, err := marshalJSON("kernel digest", snap.Digest)
		if err != nil {
			return nil, fmt.Errorf("write snapshots: %w", err)
		}
		weights, err := marshalJSON("tier weights", snap.Weights)
		if err != nil {
			return nil, fmt.Errorf("write snapshots: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots
			(symbol, asof_date, focus, preset, role, tier, maturity_date, kernel_digest, tier_weights)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			snap.Key.Symbol,
			snap.Key.AsofDate,
			snap.Key.Focus,
			snap.Key.Preset,
			snap.Key.Role,
			snap.Tier,
			snap.MaturityDate,
			digest,
			weights,
		)
		if err != nil {
			return nil, fmt.Errorf("write snapshots: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("write snapshots: %w", err)
		}
		inserted[i] = n == 1
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write snapshots: commit: %w", err)
	}
	return inserted, nil
}

// ResolveFunc decides the outcome of an unresolved snapshot.
// Returning false leaves the snapshot unresolved (not yet matured).
type ResolveFunc func(Snapshot) (Outcome, bool)

// Resolve offers every unresolved snapshot of symbol to fn, in key order,
// and stores the outcomes it returns. The pass runs in one transaction.
func (s *Store) Resolve(ctx context.Context, symbol string, fn ResolveFunc) (result ResolveResult, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("resolve: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+snapshotColumns("s")+`, o.symbol IS NOT NULL
		FROM snapshots s
		LEFT JOIN outcomes o
			ON o.symbol = s.symbol AND o.asof_date = s.asof_date AND o.focus = s.focus
			AND o.preset = s.preset AND o.role = s.role
		WHERE s.symbol = ?
		ORDER BY `+snapshotOrder("s"),
		symbol,
	)
	if err != nil {
		return result, fmt.Errorf("resolve: %w", err)
	}

	var pending []Snapshot
	for rows.Next() {
		var done bool
		snap, err := scanSnapshot(rows, &done)
		if err != nil {
			rows.Close()
			return result, fmt.Errorf("resolve: %w", err)
		}
		if done {
			result.AlreadyResolved++
			continue
		}
		pending = append(pending, snap)
	}
	if err := rows.Close(); err != nil {
		return result, fmt.Errorf("resolve: %w", err)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("resolve: %w", err)
	}

	for _, snap := range pending {
		out, ok := fn(snap)
		if !ok {
			result.NotMatured++
			continue
		}
		out.Key = snap.Key
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes
			(symbol, asof_date, focus, preset, role, tier, hit, realized_return, expected_return, inside_band, resolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			out.Key.Symbol,
			out.Key.AsofDate,
			out.Key.Focus,
			out.Key.Preset,
			out.Key.Role,
			out.Tier,
			boolToInt(out.Hit),
			out.RealizedReturn,
			out.ExpectedReturn,
			boolToInt(out.InsideBand),
			out.ResolvedAt,
		)
		if err != nil {
			return result, fmt.Errorf("resolve: write outcome: %w", err)
		}
		result.Resolved = append(result.Resolved, out)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("resolve: commit: %w", err)
	}
	return result, nil
}

// WriteProposal appends a policy proposal for symbol.
func (s *Store) WriteProposal(ctx context.Context, symbol string, body map[string]any) error {
	text, err := marshalJSON("proposal", body)
	if err != nil {
		return fmt.Errorf("write proposal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO proposals (symbol, body) VALUES (?, ?)`, symbol, text); err != nil {
		return fmt.Errorf("write proposal: %w", err)
	}
	return nil
}
