package verify

// Forecast horizons ("focus" values) the service produces snapshots for.
var Horizons = []string{"7d", "14d", "30d", "90d", "180d", "365d"}

// Risk presets.
var Presets = []string{"conservative", "balanced", "aggressive"}

// Snapshot roles.
var Roles = []string{"ACTIVE", "SHADOW"}

// Attribution tiers.
var Tiers = []string{"STRUCTURE", "TACTICAL", "TIMING"}

// DefaultFocus is the horizon queried when none is configured.
const DefaultFocus = "30d"

// DefaultPreset is the preset the service resolves when none is requested.
const DefaultPreset = "balanced"

// DryRunMode is the mode echoed by the policy dry-run endpoint.
const DryRunMode = "DRY_RUN"

// ExpectedSnapshotTotal is the number of snapshots one write pass covers:
// one per (horizon, preset, role).
var ExpectedSnapshotTotal = len(Horizons) * len(Presets) * len(Roles)

// IsHorizon reports whether focus is a known horizon.
func IsHorizon(focus string) bool {
	for _, h := range Horizons {
		if h == focus {
			return true
		}
	}
	return false
}
