package engine

import (
	"math"

	"github.com/socops/sochub/internal/models"
)

const (
	weightSource   = 0.3
	weightForensic = 0.4
	weightIntel    = 0.2
	weightSurface  = 0.1

	// Forensic scores at or above forensicDominance lift the blend to at least forensicFloor.
	forensicDominance = 90
	forensicFloor     = 80

	// Absorbs binary representation error, e.g. 0.1*70 landing at 6.999999999999999.
	floorEpsilon = 1e-9
)

// RiskInputs are the four source scores blended into a final risk. Absent
// sources contribute zero.
type RiskInputs struct {
	Source   float64
	Forensic float64
	Intel    float64
	Surface  float64
}

// ComputeFinalRisk blends the source scores and truncates to an integer. When the
// forensic score signals near-certain compromise the result never drops below
// forensicFloor. No clamping to [0,100] is applied.
func ComputeFinalRisk(in RiskInputs) int {
	final := weightSource*in.Source +
		weightForensic*in.Forensic +
		weightIntel*in.Intel +
		weightSurface*in.Surface
	if in.Forensic >= forensicDominance {
		final = math.Max(forensicFloor, final)
	}
	return int(math.Trunc(final + floorEpsilon))
}

func riskInputs(inc models.RawIncident, asset *models.AssetRecord, intel *models.IndicatorRecord, forensic *models.ForensicUserRecord) RiskInputs {
	in := RiskInputs{Source: inc.RiskScore}
	if asset != nil {
		in.Surface = asset.AttackSurfaceScore
	}
	if intel != nil {
		in.Intel = intel.Score
	}
	if forensic != nil {
		in.Forensic = forensic.RiskScore
	}
	return in
}
