package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snap(date, focus, preset, role string) Snapshot {
	return Snapshot{
		Key:          SnapshotKey{Symbol: "BTC", AsofDate: date, Focus: focus, Preset: preset, Role: role},
		Tier:         "TACTICAL",
		MaturityDate: date,
		Digest:       KernelDigest{Direction: "BUY", Mode: "TREND_FOLLOW", FinalSize: 0.25, ConsensusIndex: 0.6, ConflictLevel: "LOW"},
		Weights:      TierWeights{Structure: 0.5, Tactical: 0.3, Timing: 0.2},
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		got, err := s.pragma(tt.name)
		if err != nil {
			t.Fatalf("pragma(%s) failed: %v", tt.name, err)
		}
		if got != tt.expected {
			t.Errorf("%s = %q, expected %q", tt.name, got, tt.expected)
		}
	}
}

func TestOpen_MemoryStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	a, b := openMemory(t), openMemory(t)

	if _, err := a.WriteSnapshots(ctx, []Snapshot{snap("2026-06-01", "7d", "balanced", "ACTIVE")}); err != nil {
		t.Fatalf("WriteSnapshots() failed: %v", err)
	}
	counts, err := b.CountByRole(ctx, "BTC")
	if err != nil {
		t.Fatalf("CountByRole() failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("second store sees %v, want empty", counts)
	}
}

func TestWriteSnapshots_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	batch := []Snapshot{
		snap("2026-06-01", "7d", "balanced", "ACTIVE"),
		snap("2026-06-01", "7d", "balanced", "SHADOW"),
	}
	inserted, err := s.WriteSnapshots(ctx, batch)
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !inserted[0] || !inserted[1] {
		t.Errorf("first write inserted = %v, want all true", inserted)
	}

	changed := batch[0]
	changed.Tier = "STRUCTURE"
	inserted, err = s.WriteSnapshots(ctx, []Snapshot{changed, snap("2026-06-01", "14d", "balanced", "ACTIVE")})
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if inserted[0] || !inserted[1] {
		t.Errorf("second write inserted = %v, want [false true]", inserted)
	}

	got, err := s.LatestSnapshot(ctx, "BTC", "7d", "ACTIVE", "balanced")
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if got.Tier != "TACTICAL" {
		t.Errorf("existing row was modified: tier = %q", got.Tier)
	}
}

func TestLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	got, err := s.LatestSnapshot(ctx, "BTC", "30d", "ACTIVE", "balanced")
	if err != nil {
		t.Fatalf("LatestSnapshot() on empty store failed: %v", err)
	}
	if got != nil {
		t.Fatalf("LatestSnapshot() = %+v, want nil", got)
	}

	want := snap("2026-06-01", "30d", "balanced", "ACTIVE")
	_, err = s.WriteSnapshots(ctx, []Snapshot{
		snap("2026-05-01", "30d", "balanced", "ACTIVE"),
		want,
		snap("2026-07-01", "30d", "balanced", "SHADOW"),
		snap("2026-07-01", "30d", "aggressive", "ACTIVE"),
	})
	if err != nil {
		t.Fatalf("WriteSnapshots() failed: %v", err)
	}

	got, err = s.LatestSnapshot(ctx, "BTC", "30d", "ACTIVE", "balanced")
	if err != nil {
		t.Fatalf("LatestSnapshot() failed: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("LatestSnapshot() = %+v, want %+v", got, want)
	}
}

func TestCountByRole(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, err := s.WriteSnapshots(ctx, []Snapshot{
		snap("2026-06-01", "7d", "balanced", "ACTIVE"),
		snap("2026-06-01", "7d", "balanced", "SHADOW"),
		snap("2026-06-01", "7d", "defensive", "SHADOW"),
	})
	if err != nil {
		t.Fatalf("WriteSnapshots() failed: %v", err)
	}

	counts, err := s.CountByRole(ctx, "BTC")
	if err != nil {
		t.Fatalf("CountByRole() failed: %v", err)
	}
	if counts["ACTIVE"] != 1 || counts["SHADOW"] != 2 || len(counts) != 2 {
		t.Errorf("CountByRole() = %v, want ACTIVE=1 SHADOW=2", counts)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, err := s.WriteSnapshots(ctx, []Snapshot{
		snap("2026-05-01", "7d", "balanced", "ACTIVE"),
		snap("2026-05-01", "7d", "balanced", "SHADOW"),
		snap("2026-06-01", "7d", "balanced", "ACTIVE"),
	})
	if err != nil {
		t.Fatalf("WriteSnapshots() failed: %v", err)
	}

	var offered []SnapshotKey
	matured := func(sn Snapshot) (Outcome, bool) {
		offered = append(offered, sn.Key)
		if sn.Key.AsofDate != "2026-05-01" {
			return Outcome{}, false
		}
		return Outcome{Tier: sn.Tier, Hit: true, RealizedReturn: 3, ExpectedReturn: 2, InsideBand: true, ResolvedAt: "2026-06-01"}, true
	}

	res, err := s.Resolve(ctx, "BTC", matured)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if len(res.Resolved) != 2 || res.NotMatured != 1 || res.AlreadyResolved != 0 {
		t.Errorf("first pass = %d resolved, %d not matured, %d already", len(res.Resolved), res.NotMatured, res.AlreadyResolved)
	}
	if len(offered) != 3 || offered[0].Role != "ACTIVE" || offered[1].Role != "SHADOW" || offered[2].AsofDate != "2026-06-01" {
		t.Errorf("snapshots offered out of key order: %v", offered)
	}
	if res.Resolved[0].Key != offered[0] {
		t.Errorf("outcome key = %v, want %v", res.Resolved[0].Key, offered[0])
	}

	res, err = s.Resolve(ctx, "BTC", matured)
	if err != nil {
		t.Fatalf("second Resolve() failed: %v", err)
	}
	if len(res.Resolved) != 0 || res.AlreadyResolved != 2 || res.NotMatured != 1 {
		t.Errorf("second pass = %d resolved, %d not matured, %d already", len(res.Resolved), res.NotMatured, res.AlreadyResolved)
	}
}

func TestOutcomes_Filter(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, err := s.WriteSnapshots(ctx, []Snapshot{
		snap("2026-05-01", "7d", "balanced", "ACTIVE"),
		snap("2026-05-01", "7d", "aggressive", "ACTIVE"),
		snap("2026-05-01", "14d", "balanced", "ACTIVE"),
	})
	if err != nil {
		t.Fatalf("WriteSnapshots() failed: %v", err)
	}
	_, err = s.Resolve(ctx, "BTC", func(sn Snapshot) (Outcome, bool) {
		return Outcome{Tier: sn.Tier, Hit: sn.Key.Preset == "balanced", ResolvedAt: "2026-06-01"}, true
	})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	tests := []struct {
		name   string
		filter OutcomeFilter
		want   int
	}{
		{"all", OutcomeFilter{Symbol: "BTC"}, 3},
		{"focus", OutcomeFilter{Symbol: "BTC", Focus: "7d"}, 2},
		{"focus and preset", OutcomeFilter{Symbol: "BTC", Focus: "7d", Preset: "balanced"}, 1},
		{"other symbol", OutcomeFilter{Symbol: "ETH"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Outcomes(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Outcomes() failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Outcomes() returned %d, want %d", len(got), tt.want)
			}
		})
	}

	got, err := s.Outcomes(ctx, OutcomeFilter{Symbol: "BTC", Preset: "balanced", Focus: "7d"})
	if err != nil {
		t.Fatalf("Outcomes() failed: %v", err)
	}
	if !got[0].Hit {
		t.Error("hit flag did not round-trip")
	}
}

func TestProposals(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	got, err := s.Proposals(ctx, "BTC")
	if err != nil {
		t.Fatalf("Proposals() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("Proposals() = %#v, want empty non-nil slice", got)
	}

	for _, id := range []string{"p-2", "p-1"} {
		if err := s.WriteProposal(ctx, "BTC", map[string]any{"id": id}); err != nil {
			t.Fatalf("WriteProposal(%s) failed: %v", id, err)
		}
	}
	if err := s.WriteProposal(ctx, "ETH", map[string]any{"id": "p-3"}); err != nil {
		t.Fatalf("WriteProposal(p-3) failed: %v", err)
	}

	got, err = s.Proposals(ctx, "BTC")
	if err != nil {
		t.Fatalf("Proposals() failed: %v", err)
	}
	if len(got) != 2 || got[0]["id"] != "p-2" || got[1]["id"] != "p-1" {
		t.Errorf("Proposals() = %v, want p-2 then p-1", got)
	}
}

func TestReopen_KeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s1.WriteSnapshots(ctx, []Snapshot{snap("2026-06-01", "7d", "balanced", "ACTIVE")}); err != nil {
		t.Fatalf("WriteSnapshots() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	inserted, err := s2.WriteSnapshots(ctx, []Snapshot{snap("2026-06-01", "7d", "balanced", "ACTIVE")})
	if err != nil {
		t.Fatalf("WriteSnapshots() after reopen failed: %v", err)
	}
	if inserted[0] {
		t.Error("snapshot written before reopen was inserted again")
	}
}
