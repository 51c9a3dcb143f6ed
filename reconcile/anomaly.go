/*
anomaly.go - Worked-hours anomaly policy

PURPOSE:
  Decides "normal" vs "anomalous" for a daily hours total. A display-layer
  concern over the aggregated totals, independent of the per-day
  authoritative status: exception cells are never classified, only totals.

CANONICAL POLICY:
  A total is NOT anomalous if it falls in the closed band [7.95, 8.80], or
  is within 0.01 of 9.00 or of 10.00. Everything else - zero and impossible
  negative values included - is flagged for human review. This models the
  standard day plus the two fixed overtime patterns.

  The historical call sites disagreed: one used the band+tolerance form
  above, the other a single wide band [7.95, 10.00]. The band+tolerance
  form is canonical here; the wide band stays available as a configured
  alternative (see factory.AnomalyFactory) and the two are never merged.
*/
package reconcile

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// ANOMALY POLICY
// =============================================================================

// AnomalyPolicy classifies a daily hours total.
type AnomalyPolicy interface {
	// IsAnomalous returns true if the total needs human review.
	IsAnomalous(total decimal.Decimal) bool

	// Name identifies the policy in reports and logs.
	Name() string
}

// Band is a closed interval [Min, Max] of acceptable totals.
type Band struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (b Band) contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(b.Min) && v.LessThanOrEqual(b.Max)
}

// TolerancePoint accepts totals within Tolerance of Value.
type TolerancePoint struct {
	Value     decimal.Decimal
	Tolerance decimal.Decimal
}

func (p TolerancePoint) matches(v decimal.Decimal) bool {
	return v.Sub(p.Value).Abs().LessThanOrEqual(p.Tolerance)
}

// BandedPolicy is the concrete policy: a total is normal when any band
// contains it or any tolerance point matches it.
type BandedPolicy struct {
	PolicyName string
	Bands      []Band
	Points     []TolerancePoint
}

func (p *BandedPolicy) Name() string { return p.PolicyName }

func (p *BandedPolicy) IsAnomalous(total decimal.Decimal) bool {
	for _, b := range p.Bands {
		if b.contains(total) {
			return false
		}
	}
	for _, pt := range p.Points {
		if pt.matches(total) {
			return false
		}
	}
	return true
}

// StandardPolicy is the canonical policy: [7.95, 8.80] plus 9.00 and 10.00
// within 0.01.
func StandardPolicy() *BandedPolicy {
	tol := decimal.NewFromFloat(0.01)
	return &BandedPolicy{
		PolicyName: "standard",
		Bands: []Band{
			{Min: decimal.NewFromFloat(7.95), Max: decimal.NewFromFloat(8.80)},
		},
		Points: []TolerancePoint{
			{Value: decimal.NewFromInt(9), Tolerance: tol},
			{Value: decimal.NewFromInt(10), Tolerance: tol},
		},
	}
}

// WideBandPolicy is the simplified legacy variant: one band [7.95, 10.00].
func WideBandPolicy() *BandedPolicy {
	return &BandedPolicy{
		PolicyName: "wide-band",
		Bands: []Band{
			{Min: decimal.NewFromFloat(7.95), Max: decimal.NewFromInt(10)},
		},
	}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// AnomalyFlag is one classified daily total.
type AnomalyFlag struct {
	Key       GridKey
	Total     decimal.Decimal
	Anomalous bool
}

// Classify applies the policy to every aggregated total. The caller filters
// to Hours cells when joining against the status grid; a zero-hours cell
// resolved to Unexplained never reaches this check.
func Classify(totals map[GridKey]DailyTotal, policy AnomalyPolicy) []AnomalyFlag {
	flags := make([]AnomalyFlag, 0, len(totals))
	for key, t := range totals {
		flags = append(flags, AnomalyFlag{
			Key:       key,
			Total:     t.Total,
			Anomalous: policy.IsAnomalous(t.Total),
		})
	}
	return flags
}
