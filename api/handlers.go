/*
handlers.go - HTTP API handlers for the attendance reconciliation engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to engine logic.

ENDPOINTS:
  Sources (replace whole snapshot):
    PUT    /api/sources/entries     Time entries (malformed rows dropped)
    PUT    /api/sources/roster      Active roster
    PUT    /api/sources/lifecycle   Admission/termination windows
    PUT    /api/sources/leaves      Vacation/medical intervals
    PUT    /api/sources/calendar    Chargeable-day calendar

  Reports:
    GET    /api/grid                Status pivot (rows x dates)
    GET    /api/dashboard           Flattened totals with anomaly flags
    GET    /api/anomalies           Worked-hours cells, classified
    GET    /api/pending             Unresolved chargeable days

  Justifications:
    GET    /api/justifications
    POST   /api/justifications
    PUT    /api/justifications/{position}
    DELETE /api/justifications/{position}

CACHING:
  The latest run is cached and served to every report endpoint. Any
  snapshot replacement or justification mutation invalidates it, so a
  justification edit is visible on the very next grid read - the
  justification rule overrides everything below it, including hours.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Position out of range
  - 409: Structural failure (no input sources loaded at all)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - reconcile/engine.go: The rule-priority chain
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/reconcile"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Policy   reconcile.AnomalyPolicy
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Category string

	// Cutoff is injectable so tests can pin the reporting boundary.
	Cutoff func() reconcile.Day

	mu     sync.Mutex
	cached *runSnapshot
}

// runSnapshot is one reconciliation run plus the inputs it consumed.
type runSnapshot struct {
	inputs reconcile.Inputs
	result *reconcile.Result
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, policy reconcile.AnomalyPolicy, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if policy == nil {
		policy = reconcile.StandardPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:    store,
		Policy:   policy,
		Metrics:  m,
		Logger:   logger,
		Category: reconcile.DefaultCategory,
		Cutoff:   reconcile.Yesterday,
	}
}

// invalidate drops the cached run. Called on every mutation.
func (h *Handler) invalidate() {
	h.mu.Lock()
	h.cached = nil
	h.mu.Unlock()
}

// run returns the cached reconciliation run, computing it if stale.
func (h *Handler) run(ctx context.Context) (*runSnapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cached != nil {
		return h.cached, nil
	}

	ok, err := h.Store.HasAnyInput(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, reconcile.ErrNoInputSources
	}

	inputs, err := h.Store.LoadInputs(ctx)
	if err != nil {
		return nil, err
	}
	inputs.Category = h.Category
	inputs.Cutoff = h.Cutoff()

	started := time.Now()
	engine := reconcile.NewEngine(h.Logger)
	result, err := engine.Run(inputs)
	if err != nil {
		return nil, err
	}

	h.cached = &runSnapshot{inputs: inputs, result: result}
	h.observe(result, inputs)
	if h.Metrics != nil {
		h.Metrics.RunDuration.Observe(time.Since(started).Seconds())
	}
	return h.cached, nil
}

func (h *Handler) observe(result *reconcile.Result, inputs reconcile.Inputs) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.RunsTotal.Inc()
	h.Metrics.GridCells.Set(float64(len(result.Records)))
	h.Metrics.PendingDays.Set(float64(len(reconcile.DetectPending(result, inputs.Calendar))))

	anomalous := 0
	for _, f := range reconcile.Classify(result.Totals, h.Policy) {
		if f.Anomalous {
			anomalous++
		}
	}
	h.Metrics.AnomalousCells.Set(float64(anomalous))
}

// =============================================================================
// SOURCE SNAPSHOT HANDLERS
// =============================================================================

// ReplaceEntries swaps the time-entry snapshot. Malformed rows are dropped
// with a warning and reported in the response, never fatal to the batch.
func (h *Handler) ReplaceEntries(w http.ResponseWriter, r *http.Request) {
	var req ReplaceEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	raw := make([]reconcile.RawEntry, len(req.Rows))
	for i, row := range req.Rows {
		raw[i] = reconcile.RawEntry{
			Person:      row.Person,
			Discipline:  row.Discipline,
			Date:        row.Date,
			NormalHours: row.NormalHours,
			ExtraHours:  row.ExtraHours,
		}
	}
	entries, dropped := reconcile.ParseEntries(raw, h.Logger)

	if err := h.Store.ReplaceEntries(r.Context(), entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store entries", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, ReplaceEntriesResponse{Loaded: len(entries), Dropped: dropped})
}

// ReplaceRoster swaps the roster snapshot.
func (h *Handler) ReplaceRoster(w http.ResponseWriter, r *http.Request) {
	var rows []RosterMemberDTO
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	members := make([]reconcile.RosterMember, len(rows))
	for i, row := range rows {
		members[i] = reconcile.RosterMember{
			Person:     reconcile.PersonID(row.Person),
			Discipline: reconcile.Discipline(row.Discipline),
			Category:   row.Category,
		}
	}

	if err := h.Store.ReplaceRoster(r.Context(), members); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store roster", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]any{"loaded": len(members)})
}

// ReplaceLifecycle swaps the admission/termination snapshot.
func (h *Handler) ReplaceLifecycle(w http.ResponseWriter, r *http.Request) {
	var rows []LifecycleDTO
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	windows := make([]reconcile.LifecycleWindow, 0, len(rows))
	for _, row := range rows {
		lw := reconcile.LifecycleWindow{
			Person:     reconcile.PersonID(row.Person),
			Discipline: reconcile.Discipline(row.Discipline),
		}
		var err error
		if lw.Admission, err = parseOptionalDay(row.Admission); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid admission date (use YYYY-MM-DD)", err)
			return
		}
		if lw.Termination, err = parseOptionalDay(row.Termination); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid termination date (use YYYY-MM-DD)", err)
			return
		}
		windows = append(windows, lw)
	}

	if err := h.Store.ReplaceLifecycle(r.Context(), windows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store lifecycle windows", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]any{"loaded": len(windows)})
}

// ReplaceLeaves swaps the leave-window snapshot.
func (h *Handler) ReplaceLeaves(w http.ResponseWriter, r *http.Request) {
	var rows []LeaveDTO
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	windows := make([]reconcile.LeaveWindow, 0, len(rows))
	for _, row := range rows {
		kind := reconcile.LeaveKind(row.Kind)
		if kind != reconcile.LeaveVacation && kind != reconcile.LeaveMedical {
			writeError(w, http.StatusBadRequest, "Invalid leave kind (use vacation or medical)", nil)
			return
		}
		start, err := reconcile.ParseDay(row.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start date (use YYYY-MM-DD)", err)
			return
		}
		end, err := reconcile.ParseDay(row.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end date (use YYYY-MM-DD)", err)
			return
		}
		windows = append(windows, reconcile.LeaveWindow{
			Person:     reconcile.PersonID(row.Person),
			Discipline: reconcile.Discipline(row.Discipline),
			Kind:       kind,
			Start:      start,
			End:        end,
		})
	}

	if err := h.Store.ReplaceLeaves(r.Context(), windows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store leave windows", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]any{"loaded": len(windows)})
}

// ReplaceCalendar swaps the chargeable-day calendar. An empty list removes
// the calendar source; every day then counts as chargeable.
func (h *Handler) ReplaceCalendar(w http.ResponseWriter, r *http.Request) {
	var rows []CalendarDayDTO
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	days := make(map[reconcile.Day]bool, len(rows))
	for _, row := range rows {
		day, err := reconcile.ParseDay(row.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid calendar date (use YYYY-MM-DD)", err)
			return
		}
		days[day] = row.Chargeable
	}

	if err := h.Store.ReplaceCalendar(r.Context(), days); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store calendar", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]any{"loaded": len(days)})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetGrid returns the status pivot: rows = person+discipline, columns =
// dates, cell = display code or formatted hours.
func (h *Handler) GetGrid(w http.ResponseWriter, r *http.Request) {
	snap, err := h.run(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}

	discipline := r.URL.Query().Get("discipline")
	search := strings.ToLower(r.URL.Query().Get("search"))

	days := snap.result.Window.Days()
	columns := make([]string, len(days))
	for i, d := range days {
		columns[i] = d.Time.Format(displayDate)
	}

	type rowKey struct {
		Person     reconcile.PersonID
		Discipline reconcile.Discipline
	}
	rowsByKey := make(map[rowKey]*PivotRowDTO)
	var order []rowKey

	for _, rec := range snap.result.Records {
		if discipline != "" && string(rec.Key.Discipline) != discipline {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(string(rec.Key.Person)), search) {
			continue
		}

		rk := rowKey{rec.Key.Person, rec.Key.Discipline}
		row, ok := rowsByKey[rk]
		if !ok {
			row = &PivotRowDTO{
				Person:     string(rec.Key.Person),
				Discipline: string(rec.Key.Discipline),
				Cells:      make(map[string]CellDTO, len(days)),
			}
			rowsByKey[rk] = row
			order = append(order, rk)
		}
		row.Cells[rec.Key.Date.Time.Format(displayDate)] = CellDTO{
			Value: rec.Status.DisplayCode(),
			Class: rec.Status.CellClass(),
			Title: rec.Status.Note,
		}
	}

	rows := make([]PivotRowDTO, len(order))
	persons := make(map[reconcile.PersonID]bool)
	for i, rk := range order {
		rows[i] = *rowsByKey[rk]
		persons[rk.Person] = true
	}

	writeJSON(w, http.StatusOK, GridResponse{
		WindowStart: snap.result.Window.Start.String(),
		WindowEnd:   snap.result.Window.End.String(),
		Columns:     columns,
		Rows:        rows,
		Cards: []CardDTO{
			{Title: "Rows", Value: len(rows), Icon: "fa-file-alt"},
			{Title: "People", Value: len(persons), Icon: "fa-users"},
		},
	})
}

// GetDashboard returns flattened per-day totals with anomaly flags.
// Filters: discipline, date (YYYY-MM-DD), state (ok|anomalous), search.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.run(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}

	discipline := r.URL.Query().Get("discipline")
	date := r.URL.Query().Get("date")
	state := r.URL.Query().Get("state")
	search := strings.ToLower(r.URL.Query().Get("search"))

	flags := reconcile.Classify(snap.result.Totals, h.Policy)
	sortFlags(flags)

	rows := make([]DashboardRowDTO, 0, len(flags))
	persons := make(map[reconcile.PersonID]bool)
	for _, f := range flags {
		if discipline != "" && string(f.Key.Discipline) != discipline {
			continue
		}
		if date != "" && f.Key.Date.String() != date {
			continue
		}
		if state == "ok" && f.Anomalous {
			continue
		}
		if state == "anomalous" && !f.Anomalous {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(string(f.Key.Person)), search) {
			continue
		}

		total := snap.result.Totals[f.Key]
		rows = append(rows, DashboardRowDTO{
			Date:       f.Key.Date.String(),
			Person:     string(f.Key.Person),
			Discipline: string(f.Key.Discipline),
			Normal:     total.Normal.InexactFloat64(),
			Extra:      total.Extra.InexactFloat64(),
			Total:      total.Total.InexactFloat64(),
			Anomalous:  f.Anomalous,
		})
		persons[f.Key.Person] = true
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		Policy: h.Policy.Name(),
		Cards: []CardDTO{
			{Title: "Records", Value: len(rows), Icon: "fa-file-alt"},
			{Title: "People", Value: len(persons), Icon: "fa-users"},
		},
		Rows: rows,
	})
}

// GetAnomalies returns every worked-hours cell of the grid with its flag.
// Exception cells are never classified. Filters: discipline, date.
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	snap, err := h.run(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}

	discipline := r.URL.Query().Get("discipline")
	date := r.URL.Query().Get("date")

	var dtos []AnomalyDTO
	for _, rec := range snap.result.Records {
		if rec.Status.Kind != reconcile.KindHours {
			continue
		}
		if discipline != "" && string(rec.Key.Discipline) != discipline {
			continue
		}
		if date != "" && rec.Key.Date.String() != date {
			continue
		}
		dtos = append(dtos, AnomalyDTO{
			Person:     string(rec.Key.Person),
			Discipline: string(rec.Key.Discipline),
			Date:       rec.Key.Date.String(),
			Total:      rec.Status.Hours.InexactFloat64(),
			Anomalous:  h.Policy.IsAnomalous(rec.Status.Hours),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"anomaly_policy": h.Policy.Name(),
		"cells":          dtos,
	})
}

// GetPending returns the unresolved chargeable days.
func (h *Handler) GetPending(w http.ResponseWriter, r *http.Request) {
	snap, err := h.run(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}

	discipline := r.URL.Query().Get("discipline")
	date := r.URL.Query().Get("date")

	pending := reconcile.DetectPending(snap.result, snap.inputs.Calendar)
	dtos := make([]PendingDTO, 0, len(pending))
	for _, p := range pending {
		if discipline != "" && string(p.Discipline) != discipline {
			continue
		}
		if date != "" && p.Date.String() != date {
			continue
		}
		dtos = append(dtos, toPendingDTO(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{"pending": dtos, "count": len(dtos)})
}

// =============================================================================
// JUSTIFICATION HANDLERS
// =============================================================================

// ListJustifications returns all justification records in positional order.
func (h *Handler) ListJustifications(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListJustifications(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list justifications", err)
		return
	}

	dtos := make([]JustificationDTO, len(records))
	for i, j := range records {
		dtos[i] = toJustificationDTO(j, i)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AppendJustification adds one record.
func (h *Handler) AppendJustification(w http.ResponseWriter, r *http.Request) {
	j, ok := h.decodeJustification(w, r)
	if !ok {
		return
	}

	saved, position, err := h.Store.AppendJustification(r.Context(), j)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusCreated, toJustificationDTO(saved, position))
}

// EditJustification rewrites the record at a position. Moving its date moves
// the override: the old date's cell falls back to the automatic rules.
func (h *Handler) EditJustification(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	j, ok := h.decodeJustification(w, r)
	if !ok {
		return
	}

	saved, err := h.Store.EditJustification(r.Context(), position, j)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, toJustificationDTO(saved, position))
}

// DeleteJustification removes the record at a position. The affected cell
// reverts to whatever the automatic rules assign.
func (h *Handler) DeleteJustification(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid position", err)
		return
	}

	if err := h.Store.DeleteJustification(r.Context(), position); err != nil {
		writeMutationError(w, err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]any{"deleted": position})
}

func (h *Handler) decodeJustification(w http.ResponseWriter, r *http.Request) (reconcile.Justification, bool) {
	var req JustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return reconcile.Justification{}, false
	}

	date, err := reconcile.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return reconcile.Justification{}, false
	}

	return reconcile.Justification{
		Person:     reconcile.PersonID(req.Person),
		Discipline: reconcile.Discipline(req.Discipline),
		Date:       date,
		Code:       reconcile.DeviationCode(req.Code),
		Context:    req.Context,
	}, true
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func sortFlags(flags []reconcile.AnomalyFlag) {
	sort.Slice(flags, func(i, j int) bool {
		a, b := flags[i].Key, flags[j].Key
		if a.Discipline != b.Discipline {
			return a.Discipline < b.Discipline
		}
		if a.Person != b.Person {
			return a.Person < b.Person
		}
		return a.Date.Before(b.Date)
	})
}

func parseOptionalDay(s *string) (*reconcile.Day, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := reconcile.ParseDay(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case reconcile.IsStructural(err):
		writeError(w, http.StatusConflict, "No input sources loaded", err)
	case errors.Is(err, reconcile.ErrEmptyWindow):
		writeError(w, http.StatusConflict, "No observed dates to report on", err)
	default:
		writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
	}
}

func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconcile.ErrPositionOutOfRange):
		writeError(w, http.StatusNotFound, "Position out of range", err)
	case errors.Is(err, reconcile.ErrUnknownDeviation):
		writeError(w, http.StatusBadRequest, "Unknown deviation code", err)
	default:
		writeError(w, http.StatusInternalServerError, "Mutation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
