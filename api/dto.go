/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal engine model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATE FORMATS:
  Request bodies carry ISO dates (YYYY-MM-DD). Grid columns and cell keys
  use the display format DD/MM/YYYY the pivot is rendered with.

SEE ALSO:
  - handlers.go: Uses these types
  - reconcile/types.go: Internal model
*/
package api

import (
	"github.com/warp/attendance-engine/reconcile"
)

// displayDate is the pivot's column format.
const displayDate = "02/01/2006"

// =============================================================================
// SOURCE SNAPSHOT TYPES
// =============================================================================

// EntryRowDTO is one raw time-entry row. Fields arrive as strings: rows
// that fail date or number parsing are dropped with a warning, not fatal.
type EntryRowDTO struct {
	Person      string `json:"person"`
	Discipline  string `json:"discipline"`
	Date        string `json:"date"`
	NormalHours string `json:"normal_hours"`
	ExtraHours  string `json:"extra_hours"`
}

// ReplaceEntriesRequest replaces the full time-entry snapshot.
type ReplaceEntriesRequest struct {
	Rows []EntryRowDTO `json:"rows"`
}

// ReplaceEntriesResponse reports how the batch was absorbed.
type ReplaceEntriesResponse struct {
	Loaded  int `json:"loaded"`
	Dropped int `json:"dropped"`
}

// RosterMemberDTO is one roster row.
type RosterMemberDTO struct {
	Person     string `json:"person"`
	Discipline string `json:"discipline"`
	Category   string `json:"category"`
}

// LifecycleDTO carries admission/termination dates; nil means unknown.
type LifecycleDTO struct {
	Person      string  `json:"person"`
	Discipline  string  `json:"discipline"`
	Admission   *string `json:"admission,omitempty"`
	Termination *string `json:"termination,omitempty"`
}

// LeaveDTO is one leave interval, kind "vacation" or "medical".
type LeaveDTO struct {
	Person     string `json:"person"`
	Discipline string `json:"discipline"`
	Kind       string `json:"kind"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// CalendarDayDTO is one calendar row.
type CalendarDayDTO struct {
	Date       string `json:"date"`
	Chargeable bool   `json:"chargeable"`
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

// JustificationDTO represents one justification record.
type JustificationDTO struct {
	ID         string `json:"id"`
	Position   int    `json:"position"`
	Person     string `json:"person"`
	Discipline string `json:"discipline"`
	Date       string `json:"date"`
	Code       string `json:"code"`
	Context    string `json:"context,omitempty"`
}

// JustificationRequest is the body for append and edit.
type JustificationRequest struct {
	Person     string `json:"person"`
	Discipline string `json:"discipline"`
	Date       string `json:"date"`
	Code       string `json:"code"`
	Context    string `json:"context,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// CellDTO is one rendered grid cell.
type CellDTO struct {
	Value string `json:"value"`
	Class string `json:"class"`
	Title string `json:"title,omitempty"`
}

// PivotRowDTO is one grid row: a person+discipline and its date cells.
type PivotRowDTO struct {
	Person     string             `json:"person"`
	Discipline string             `json:"discipline"`
	Cells      map[string]CellDTO `json:"cells"`
}

// CardDTO is one dashboard summary card.
type CardDTO struct {
	Title string `json:"title"`
	Value int    `json:"value"`
	Icon  string `json:"icon"`
}

// GridResponse is the pivot view of the status grid.
type GridResponse struct {
	WindowStart string        `json:"window_start"`
	WindowEnd   string        `json:"window_end"`
	Columns     []string      `json:"columns"`
	Rows        []PivotRowDTO `json:"rows"`
	Cards       []CardDTO     `json:"cards"`
}

// DashboardRowDTO is one flattened export-shaped row.
type DashboardRowDTO struct {
	Date       string  `json:"date"`
	Person     string  `json:"person"`
	Discipline string  `json:"discipline"`
	Normal     float64 `json:"normal_hours"`
	Extra      float64 `json:"extra_hours"`
	Total      float64 `json:"total_hours"`
	Anomalous  bool    `json:"anomalous"`
}

// DashboardResponse wraps the flattened rows with summary cards.
type DashboardResponse struct {
	Policy string            `json:"anomaly_policy"`
	Cards  []CardDTO         `json:"cards"`
	Rows   []DashboardRowDTO `json:"rows"`
}

// AnomalyDTO is one classified worked-hours cell.
type AnomalyDTO struct {
	Person     string  `json:"person"`
	Discipline string  `json:"discipline"`
	Date       string  `json:"date"`
	Total      float64 `json:"total_hours"`
	Anomalous  bool    `json:"anomalous"`
}

// PendingDTO is one unresolved chargeable day.
type PendingDTO struct {
	Person     string `json:"person"`
	Discipline string `json:"discipline"`
	Date       string `json:"date"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toJustificationDTO(j reconcile.Justification, position int) JustificationDTO {
	return JustificationDTO{
		ID:         j.ID,
		Position:   position,
		Person:     string(j.Person),
		Discipline: string(j.Discipline),
		Date:       j.Date.String(),
		Code:       string(j.Code),
		Context:    j.Context,
	}
}

func toPendingDTO(p reconcile.PendingDay) PendingDTO {
	return PendingDTO{
		Person:     string(p.Person),
		Discipline: string(p.Discipline),
		Date:       p.Date.String(),
	}
}
