/*
Package reconcile implements the attendance status reconciliation engine.

PURPOSE:
  This package merges five loosely-correlated data sources - raw time
  entries, an active roster, admission/termination windows, leave windows,
  and a chargeable-day calendar - into one non-contradictory per-day verdict
  for every (person, discipline, day) cell of a coverage window. Each cell
  resolves to either a worked-hours total or a single exception code.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry/DailyTotal: Raw punch lines and their per-day aggregation
  - Status/StatusRecord:  The single authoritative verdict per grid cell
  - DeviationCode:        Closed set of explicit absence justifications
  - LifecycleWindow:      Admission/termination facts per person
  - LeaveWindow:          Vacation and medical-leave intervals

DESIGN PRINCIPLES:
  1. Purity: A reconciliation run is a pure function of its snapshot inputs
  2. Precision: Uses decimal.Decimal for hour totals, never float64
  3. Explicit absence: Unknown admission/termination is a nil pointer,
     never a sentinel date constant
  4. Totality: Exactly one StatusRecord exists per grid cell

SEE ALSO:
  - engine.go:    The rule-priority chain
  - aggregate.go: TimeEntry to DailyTotal aggregation
  - anomaly.go:   Worked-hours anomaly policy
  - pending.go:   Unresolved chargeable-day detection
*/
package reconcile

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PersonID string
type Discipline string

// GridKey identifies one cell of the reconciliation grid. Key equality is
// exact-string match on person/discipline and exact calendar-day match.
type GridKey struct {
	Person     PersonID
	Discipline Discipline
	Date       Day
}

// =============================================================================
// TIME ENTRIES AND DAILY TOTALS
// =============================================================================

// TimeEntry is one raw punch line. Immutable once loaded; many entries for
// the same key collapse into a single DailyTotal.
type TimeEntry struct {
	Person      PersonID
	Discipline  Discipline
	Date        Day
	NormalHours decimal.Decimal
	ExtraHours  decimal.Decimal
}

// DailyTotal is the aggregated sum for one grid key. Recomputed fully on
// every reconciliation run, so totals always reflect the complete entry set.
type DailyTotal struct {
	Key    GridKey
	Normal decimal.Decimal
	Extra  decimal.Decimal
	Total  decimal.Decimal
}

// =============================================================================
// ROSTER
// =============================================================================

// DefaultCategory is the employment category admitted to the grid when the
// caller does not configure one.
const DefaultCategory = "MOD"

// RosterMember is one row of the roster source. The roster is the
// authoritative assignment of a person to a discipline.
type RosterMember struct {
	Person     PersonID
	Discipline Discipline
	Category   string
}

// =============================================================================
// LIFECYCLE AND LEAVE WINDOWS
// =============================================================================

// LifecycleWindow holds employment boundaries for a person+discipline.
// Nil Admission or Termination means the boundary is unknown and the
// corresponding rule never fires.
type LifecycleWindow struct {
	Person      PersonID
	Discipline  Discipline
	Admission   *Day
	Termination *Day
}

type LeaveKind string

const (
	LeaveVacation LeaveKind = "vacation"
	LeaveMedical  LeaveKind = "medical"
)

// LeaveWindow is one closed interval [Start, End] of leave. Windows may
// overlap; only membership matters.
type LeaveWindow struct {
	Person     PersonID
	Discipline Discipline
	Kind       LeaveKind
	Start      Day
	End        Day
}

// Contains reports whether the day falls inside the window.
func (w LeaveWindow) Contains(d Day) bool {
	return d.AfterOrEqual(w.Start) && d.BeforeOrEqual(w.End)
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

// DeviationCode is a closed-set label explaining an absence.
type DeviationCode string

const (
	DeviationMedicalCertificate DeviationCode = "AT"
	DeviationAbsent             DeviationCode = "AU"
	DeviationSpecialPermission  DeviationCode = "SP"
	DeviationDependentCare      DeviationCode = "DP"
)

// KnownDeviation reports whether the code belongs to the closed set.
func KnownDeviation(c DeviationCode) bool {
	switch c {
	case DeviationMedicalCertificate, DeviationAbsent,
		DeviationSpecialPermission, DeviationDependentCare:
		return true
	}
	return false
}

// Justification is an explicit human decision that a day is explained.
// It overrides every automatic rule, including recorded hours.
// ID is a stable record identifier assigned by the store.
type Justification struct {
	ID         string
	Person     PersonID
	Discipline Discipline
	Date       Day
	Code       DeviationCode
	Context    string
}

// =============================================================================
// STATUS - The engine's output unit
// =============================================================================

type StatusKind string

const (
	KindHours        StatusKind = "hours"
	KindNoCharge     StatusKind = "no_charge"
	KindJustified    StatusKind = "justified"
	KindTerminated   StatusKind = "terminated"
	KindVacation     StatusKind = "vacation"
	KindMedicalLeave StatusKind = "medical_leave"
	KindNotYetHired  StatusKind = "not_yet_hired"
	KindUnexplained  StatusKind = "unexplained"
)

// Status is the verdict for one grid cell.
//
// Hours is set for KindHours, and also for KindNoCharge when the day has
// hours despite not being chargeable (shown informationally, never an error).
// Code and Note are set for KindJustified only.
type Status struct {
	Kind  StatusKind
	Hours decimal.Decimal
	Code  DeviationCode
	Note  string
}

// DisplayCode renders the status the way the pivot grid shows it.
// Hours use two decimals with a comma separator; a non-chargeable day
// without hours renders empty.
func (s Status) DisplayCode() string {
	switch s.Kind {
	case KindHours:
		return formatHours(s.Hours)
	case KindNoCharge:
		if s.Hours.IsPositive() {
			return formatHours(s.Hours)
		}
		return ""
	case KindJustified:
		return string(s.Code)
	case KindTerminated:
		return "DL"
	case KindVacation:
		return "F"
	case KindMedicalLeave:
		return "I"
	case KindNotYetHired:
		return "AG"
	default:
		return "X"
	}
}

// CellClass returns the CSS class the display layer attaches to the cell.
func (s Status) CellClass() string {
	switch s.Kind {
	case KindHours:
		return "hours-cell"
	case KindNoCharge:
		if s.Hours.IsPositive() {
			return "hours-cell"
		}
		return "code-nocharge"
	case KindJustified:
		return "code-" + string(s.Code)
	case KindTerminated:
		return "code-DL"
	case KindVacation:
		return "code-F"
	case KindMedicalLeave:
		return "code-I"
	case KindNotYetHired:
		return "code-AG"
	default:
		return "empty-cell"
	}
}

func formatHours(h decimal.Decimal) string {
	out := []byte(h.StringFixed(2))
	for i, c := range out {
		if c == '.' {
			out[i] = ','
		}
	}
	return string(out)
}

// StatusRecord pairs a grid key with its resolved status. Exactly one
// StatusRecord exists per grid cell in the coverage window.
type StatusRecord struct {
	Key    GridKey
	Status Status
}
