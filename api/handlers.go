/*
handlers.go - HTTP API handlers for batch generation and QC

PURPOSE:
  Exposes the generation engine via REST. Handles HTTP request and
  response shaping and delegates to the run, qc and store packages.

ENDPOINTS:
  Labels:
    GET    /api/labels                List loaded label records

  Batches:
    GET    /api/batches               List stored batches
    POST   /api/batches               Expand label records into a batch
    GET    /api/batches/{id}          Get a batch with all runs
    GET    /api/batches/{id}/file     Download the batch as CSV

  QC:
    POST   /api/batches/{id}/qc      Validate a stored batch
    GET    /api/batches/{id}/qc      Stored verdicts for a batch

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 404: Batch or descriptor not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/qc"
	"github.com/aquasim/appdate-engine/run"
	"github.com/aquasim/appdate-engine/store/sqlite"
)

const timeFormat = time.RFC3339

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Expander *run.Expander

	// Records is the loaded label table, raw label units.
	Records []label.Record

	// RunID names batches generated through the API.
	RunID string

	Log logrus.FieldLogger
}

// NewHandler creates a handler around a store and a configured expander.
func NewHandler(store *sqlite.Store, expander *run.Expander, records []label.Record, runID string, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store:    store,
		Expander: expander,
		Records:  records,
		RunID:    runID,
		Log:      log,
	}
}

// =============================================================================
// LABEL ENDPOINTS
// =============================================================================

// ListLabels returns the loaded label records.
// GET /api/labels
func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	dtos := make([]LabelDTO, len(h.Records))
	for i := range h.Records {
		dtos[i] = toLabelDTO(&h.Records[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BATCH ENDPOINTS
// =============================================================================

// GenerateBatch expands label records into a new stored batch.
// POST /api/batches
func (h *Handler) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	records, err := h.selectRecords(req.Descriptors)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown descriptor", err)
		return
	}

	res := h.Expander.Expand(records)

	batch := &sqlite.Batch{
		RunID:      h.RunID,
		Assessment: string(h.Expander.Options.Assessment),
		Rows:       res.Rows,

		MissingScenarios:   res.MissingScenarios,
		MissingProfiles:    res.MissingProfiles,
		UnreachedAnnualMax: res.UnreachedAnnualMax,
	}
	if err := h.Store.SaveBatch(r.Context(), batch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save batch", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"batch": batch.ID,
		"runs":  len(batch.Rows),
	}).Info("batch generated")

	writeJSON(w, http.StatusCreated, toBatchDTO(batch))
}

func (h *Handler) selectRecords(descriptors []string) ([]label.Record, error) {
	if len(descriptors) == 0 {
		return h.Records, nil
	}

	byDescriptor := make(map[string]label.Record, len(h.Records))
	for _, rec := range h.Records {
		byDescriptor[rec.Descriptor] = rec
	}

	out := make([]label.Record, 0, len(descriptors))
	for _, d := range descriptors {
		rec, ok := byDescriptor[d]
		if !ok {
			return nil, fmt.Errorf("descriptor %q is not in the label table", d)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListBatches returns batch summaries, newest first.
// GET /api/batches
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.Store.ListBatches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list batches", err)
		return
	}

	dtos := make([]BatchSummaryDTO, len(batches))
	for i, b := range batches {
		dtos[i] = BatchSummaryDTO{
			ID:         b.ID,
			RunID:      b.RunID,
			Assessment: b.Assessment,
			CreatedAt:  b.CreatedAt.Format(timeFormat),
			RunCount:   b.RunCount,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBatch returns a batch with all of its runs.
// GET /api/batches/{id}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(batch))
}

// DownloadBatchFile streams a batch as a model batch CSV.
// GET /api/batches/{id}/file
func (h *Handler) DownloadBatchFile(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", batch.RunID+"_batch.csv"))
	if err := run.WriteBatchCSV(w, batch.Rows, nil, nil); err != nil {
		h.Log.WithError(err).Error("failed to stream batch file")
	}
}

func (h *Handler) loadBatch(w http.ResponseWriter, r *http.Request) (*sqlite.Batch, bool) {
	id := chi.URLParam(r, "id")
	batch, err := h.Store.GetBatch(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Batch not found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load batch", err)
		return nil, false
	}
	return batch, true
}

// =============================================================================
// QC ENDPOINTS
// =============================================================================

// ValidateBatch runs compliance checks over a stored batch and persists
// the verdicts.
// POST /api/batches/{id}/qc
func (h *Handler) ValidateBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.loadBatch(w, r)
	if !ok {
		return
	}

	runs := make([]qc.RunInput, len(batch.Rows))
	for i := range batch.Rows {
		runs[i] = toRunInput(&batch.Rows[i])
	}

	report := qc.ValidateBatch(runs, h.Records, h.Expander.Scenarios, h.Log)
	if err := h.Store.SaveQCResults(r.Context(), batch.ID, report.Results); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save qc results", err)
		return
	}

	dto := QCReportDTO{
		BatchID:  batch.ID,
		AllValid: report.AllValid(),
		Skipped:  report.Skipped,
		Results:  make([]QCRecordDTO, len(report.Results)),
	}
	for i := range report.Results {
		res := &report.Results[i]
		dto.Results[i] = QCRecordDTO{
			RunName:    res.RunName,
			Valid:      res.Valid(),
			ModeledApp: res.ModeledApps,
			ModeledAmt: res.AnnAmt.Modeled.String(),
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

func toRunInput(row *run.BatchRow) qc.RunInput {
	in := qc.RunInput{
		Descriptor:   row.Descriptor,
		RunName:      row.RunName,
		HUC2:         row.HUC2,
		Bin:          fmt.Sprintf("%d", row.Bin),
		Scenario:     row.Scenario,
		DeclaredApps: len(row.Applications),
	}
	for _, app := range row.Applications {
		in.Dates = append(in.Dates, app.Date)
		in.Rates = append(in.Rates, app.Rate)
	}
	return in
}

// GetQCResults returns the stored verdicts for a batch.
// GET /api/batches/{id}/qc
func (h *Handler) GetQCResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	records, err := h.Store.GetQCResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load qc results", err)
		return
	}

	dtos := make([]QCRecordDTO, len(records))
	for i := range records {
		dtos[i] = toQCRecordDTO(&records[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Healthz reports liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

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
