package store

// SnapshotKey identifies one snapshot.
type SnapshotKey struct {
	Symbol   string
	AsofDate string
	Focus    string
	Preset   string
	Role     string
}

// KernelDigest is the forecast summary stored with a snapshot.
type KernelDigest struct {
	Direction      string  `json:"direction"`
	Mode           string  `json:"mode"`
	FinalSize      float64 `json:"finalSize"`
	ConsensusIndex float64 `json:"consensusIndex"`
	ConflictLevel  string  `json:"conflictLevel"`
}

// TierWeights are the per-tier weight sums behind a snapshot.
type TierWeights struct {
	Structure float64 `json:"structureWeightSum"`
	Tactical  float64 `json:"tacticalWeightSum"`
	Timing    float64 `json:"timingWeightSum"`
}

// Snapshot is a persisted point-in-time forecast.
type Snapshot struct {
	Key          SnapshotKey
	Tier         string
	MaturityDate string
	Digest       KernelDigest
	Weights      TierWeights
}

// Outcome is the resolved result of a matured snapshot.
type Outcome struct {
	Key            SnapshotKey
	Tier           string
	Hit            bool
	RealizedReturn float64
	ExpectedReturn float64
	InsideBand     bool
	ResolvedAt     string
}

// OutcomeFilter narrows an outcome query. Empty fields match everything.
type OutcomeFilter struct {
	Symbol string
	Focus  string
	Preset string
}

// ResolveResult summarizes one resolution pass.
type ResolveResult struct {
	Resolved        []Outcome
	AlreadyResolved int
	NotMatured      int
}
