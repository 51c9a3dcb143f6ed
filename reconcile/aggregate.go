/*
aggregate.go - TimeEntry to DailyTotal aggregation

PURPOSE:
  Collapses raw punch lines into one total per (person, discipline, day).
  Also the boundary where untyped rows become typed TimeEntry values:
  a row with an unparseable date or non-numeric hours is dropped with a
  warning, never fatal to the batch.

SEE ALSO:
  - engine.go: Consumes the aggregated totals
  - window.go: Derives the coverage window from them
*/
package reconcile

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW ROW PARSING
// =============================================================================

// RawEntry is an untyped time-entry row as delivered by an input collaborator.
// Dates must already be normalized to ISO format upstream; two
// representations of the same date would otherwise aggregate apart.
type RawEntry struct {
	Person      string
	Discipline  string
	Date        string
	NormalHours string
	ExtraHours  string
}

// ParseEntries converts raw rows into typed entries, dropping malformed rows
// with a warning. Returns the parsed entries and the number dropped.
func ParseEntries(rows []RawEntry, logger *slog.Logger) ([]TimeEntry, int) {
	if logger == nil {
		logger = slog.Default()
	}

	entries := make([]TimeEntry, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		date, err := ParseDay(row.Date)
		if err != nil {
			warnMalformed(logger, &MalformedRecordError{Field: "date", Value: row.Date, Reason: "unparseable date"})
			dropped++
			continue
		}
		normal, err := parseHours(row.NormalHours)
		if err != nil {
			warnMalformed(logger, &MalformedRecordError{Field: "normal_hours", Value: row.NormalHours, Reason: "non-numeric hours"})
			dropped++
			continue
		}
		extra, err := parseHours(row.ExtraHours)
		if err != nil {
			warnMalformed(logger, &MalformedRecordError{Field: "extra_hours", Value: row.ExtraHours, Reason: "non-numeric hours"})
			dropped++
			continue
		}

		entries = append(entries, TimeEntry{
			Person:      PersonID(row.Person),
			Discipline:  Discipline(row.Discipline),
			Date:        date,
			NormalHours: normal,
			ExtraHours:  extra,
		})
	}
	return entries, dropped
}

// parseHours treats an empty cell as zero hours.
func parseHours(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func warnMalformed(logger *slog.Logger, err *MalformedRecordError) {
	logger.Warn("dropping malformed time entry",
		"field", err.Field,
		"value", err.Value,
		"reason", err.Reason,
	)
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate sums entries into one DailyTotal per grid key. Grouping is
// exact-string match on person/discipline and exact calendar-day match.
func Aggregate(entries []TimeEntry) map[GridKey]DailyTotal {
	totals := make(map[GridKey]DailyTotal, len(entries))
	for _, e := range entries {
		key := GridKey{Person: e.Person, Discipline: e.Discipline, Date: e.Date}
		t := totals[key]
		t.Key = key
		t.Normal = t.Normal.Add(e.NormalHours)
		t.Extra = t.Extra.Add(e.ExtraHours)
		t.Total = t.Normal.Add(t.Extra)
		totals[key] = t
	}
	return totals
}
