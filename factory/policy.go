/*
Package factory provides JSON to Go anomaly-policy conversion.

PURPOSE:
  Converts JSON policy definitions into reconcile.AnomalyPolicy values.
  This enables band configuration without code changes - operations staff
  can adjust the accepted hour patterns in JSON, and the factory creates
  the proper Go structs.

JSON SCHEMA:
  {
    "name": "standard",
    "bands": [
      {"min": 7.95, "max": 8.80}
    ],
    "points": [
      {"value": 9.00, "tolerance": 0.01},
      {"value": 10.00, "tolerance": 0.01}
    ]
  }

BUILT-IN POLICIES:
  "standard"  - band [7.95, 8.80] plus 9.00 and 10.00 within 0.01 (canonical)
  "wide-band" - single band [7.95, 10.00] (legacy variant)

USAGE:
  factory := NewAnomalyFactory()

  // From a built-in name
  policy, err := factory.Named("standard")

  // From a JSON string
  policy, err := factory.Parse(jsonString)

SEE ALSO:
  - reconcile/anomaly.go: Policy type definitions and classification
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/reconcile"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of an anomaly policy.
type PolicyJSON struct {
	Name   string      `json:"name"`
	Bands  []BandJSON  `json:"bands"`
	Points []PointJSON `json:"points,omitempty"`
}

// BandJSON is one closed acceptance interval.
type BandJSON struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PointJSON is one tolerance-matched acceptance point.
type PointJSON struct {
	Value     float64 `json:"value"`
	Tolerance float64 `json:"tolerance"`
}

// =============================================================================
// ANOMALY FACTORY
// =============================================================================

// AnomalyFactory converts JSON policies to Go structs.
type AnomalyFactory struct{}

func NewAnomalyFactory() *AnomalyFactory {
	return &AnomalyFactory{}
}

// Named returns one of the built-in policies by name.
func (f *AnomalyFactory) Named(name string) (reconcile.AnomalyPolicy, error) {
	switch name {
	case "", "standard":
		return reconcile.StandardPolicy(), nil
	case "wide-band":
		return reconcile.WideBandPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown anomaly policy %q", name)
	}
}

// Parse parses a JSON string into an anomaly policy.
func (f *AnomalyFactory) Parse(jsonStr string) (reconcile.AnomalyPolicy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse anomaly policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts a parsed schema into a policy.
func (f *AnomalyFactory) FromJSON(pj PolicyJSON) (reconcile.AnomalyPolicy, error) {
	if len(pj.Bands) == 0 && len(pj.Points) == 0 {
		return nil, fmt.Errorf("anomaly policy %q accepts nothing: no bands or points", pj.Name)
	}

	policy := &reconcile.BandedPolicy{PolicyName: pj.Name}
	if policy.PolicyName == "" {
		policy.PolicyName = "custom"
	}

	for _, b := range pj.Bands {
		if b.Max < b.Min {
			return nil, fmt.Errorf("band max %v below min %v", b.Max, b.Min)
		}
		policy.Bands = append(policy.Bands, reconcile.Band{
			Min: decimal.NewFromFloat(b.Min),
			Max: decimal.NewFromFloat(b.Max),
		})
	}
	for _, p := range pj.Points {
		if p.Tolerance < 0 {
			return nil, fmt.Errorf("negative tolerance %v", p.Tolerance)
		}
		policy.Points = append(policy.Points, reconcile.TolerancePoint{
			Value:     decimal.NewFromFloat(p.Value),
			Tolerance: decimal.NewFromFloat(p.Tolerance),
		})
	}
	return policy, nil
}
