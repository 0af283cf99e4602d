/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model (decimal amounts, Day values) from the wire
  contract. Amounts travel as strings to avoid float drift.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/aquasim/appdate-engine/label"
	"github.com/aquasim/appdate-engine/run"
	"github.com/aquasim/appdate-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// GenerateRequest asks for a new batch. An empty descriptor list expands
// every record in the loaded label table.
type GenerateRequest struct {
	Descriptors []string `json:"descriptors,omitempty"`
}

// BatchSummaryDTO is a batch in listings.
type BatchSummaryDTO struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Assessment string `json:"assessment"`
	CreatedAt  string `json:"created_at"`
	RunCount   int    `json:"run_count"`
}

// BatchDTO is a full batch, rows included.
type BatchDTO struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	Assessment string `json:"assessment"`
	CreatedAt  string `json:"created_at"`

	Rows []RowDTO `json:"rows"`

	MissingScenarios   []string `json:"missing_scenarios,omitempty"`
	MissingProfiles    []string `json:"missing_profiles,omitempty"`
	UnreachedAnnualMax []string `json:"unreached_annual_max,omitempty"`
}

// RowDTO is one expanded run.
type RowDTO struct {
	Descriptor string `json:"descriptor"`
	RunName    string `json:"run_name"`
	HUC2       string `json:"huc2"`
	Scenario   string `json:"scenario"`
	Bin        int    `json:"bin"`
	AppMethod  int    `json:"app_method"`
	Depth      int    `json:"depth,omitempty"`
	TBand      string `json:"tband,omitempty"`
	Efficiency string `json:"efficiency"`
	Drift      string `json:"drift"`

	Applications []ApplicationDTO `json:"applications"`
}

// ApplicationDTO is one scheduled application.
type ApplicationDTO struct {
	Date string `json:"date"` // MM/DD
	Rate string `json:"rate"` // kg/ha
}

// LabelDTO summarizes a loaded label record.
type LabelDTO struct {
	Descriptor        string `json:"descriptor"`
	LabeledUse        string `json:"labeled_use"`
	Scenario          string `json:"scenario"`
	States            string `json:"states"`
	ApplicationMethod int    `json:"application_method"`
	DriftProfile      string `json:"drift_profile"`
	MaxAnnNumApps     string `json:"max_ann_num_apps"`
	MaxAnnAmt         string `json:"max_ann_amt"`
	PHI               int    `json:"phi"`
}

// QCRecordDTO is one run's stored validation verdict.
type QCRecordDTO struct {
	RunName    string   `json:"run_name"`
	Valid      bool     `json:"valid"`
	ModeledApp int      `json:"modeled_apps"`
	ModeledAmt string   `json:"modeled_amt"`
	Failures   []string `json:"failures,omitempty"`
}

// QCReportDTO summarizes a validation pass over a batch.
type QCReportDTO struct {
	BatchID  string        `json:"batch_id"`
	AllValid bool          `json:"all_valid"`
	Skipped  []string      `json:"skipped,omitempty"`
	Results  []QCRecordDTO `json:"results"`
}

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBatchDTO(batch *sqlite.Batch) BatchDTO {
	dto := BatchDTO{
		ID:         batch.ID,
		RunID:      batch.RunID,
		Assessment: batch.Assessment,
		CreatedAt:  batch.CreatedAt.Format(timeFormat),

		MissingScenarios:   batch.MissingScenarios,
		MissingProfiles:    batch.MissingProfiles,
		UnreachedAnnualMax: batch.UnreachedAnnualMax,
	}
	dto.Rows = make([]RowDTO, len(batch.Rows))
	for i := range batch.Rows {
		dto.Rows[i] = toRowDTO(&batch.Rows[i])
	}
	return dto
}

func toRowDTO(row *run.BatchRow) RowDTO {
	dto := RowDTO{
		Descriptor: row.Descriptor,
		RunName:    row.RunName,
		HUC2:       row.HUC2,
		Scenario:   row.Scenario,
		Bin:        row.Bin,
		AppMethod:  row.AppMethod,
		Depth:      row.Depth,
		Efficiency: row.Efficiency.String(),
		Drift:      row.Drift.String(),
	}
	if row.HasTBand {
		dto.TBand = row.TBand.String()
	}
	dto.Applications = make([]ApplicationDTO, len(row.Applications))
	for i, app := range row.Applications {
		dto.Applications[i] = ApplicationDTO{
			Date: app.Date.MonthDay(),
			Rate: app.Rate.String(),
		}
	}
	return dto
}

func toLabelDTO(rec *label.Record) LabelDTO {
	return LabelDTO{
		Descriptor:        rec.Descriptor,
		LabeledUse:        rec.LabeledUse,
		Scenario:          rec.Scenario,
		States:            rec.States,
		ApplicationMethod: rec.ApplicationMethod,
		DriftProfile:      rec.DriftProfile,
		MaxAnnNumApps:     rec.MaxAnnNumApps.String(),
		MaxAnnAmt:         rec.MaxAnnAmt.String(),
		PHI:               rec.PHI,
	}
}

func toQCRecordDTO(rec *sqlite.QCRecord) QCRecordDTO {
	return QCRecordDTO{
		RunName:    rec.RunName,
		Valid:      rec.Valid,
		ModeledApp: rec.ModeledApp,
		ModeledAmt: rec.ModeledAmt.String(),
		Failures:   rec.Failures,
	}
}
