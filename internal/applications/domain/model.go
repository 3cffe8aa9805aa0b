package domain

import (
	"strings"
	"time"
)

// Status is the pipeline stage of a job application
type Status string

// Status values
const (
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusRejected  Status = "Rejected"
)

// DateLayout is the ISO calendar date format used for ApplicationDate.
// Lexical order of values in this layout equals chronological order.
const DateLayout = "2006-01-02"

// Statuses lists every valid status in display order
var Statuses = []Status{StatusApplied, StatusInterview, StatusRejected}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusInterview, StatusRejected:
		return true
	}
	return false
}

// JobApplication is a single tracked application as stored in the collection
type JobApplication struct {
	ID              string     `json:"id"`
	CompanyName     string     `json:"companyName"`
	JobRole         string     `json:"jobRole"`
	ApplicationDate string     `json:"applicationDate"`
	Status          Status     `json:"status"`
	Notes           string     `json:"notes"`
	CreatedAt       *time.Time `json:"createdAt"` // nil until the store commits it
}

// Synced reports whether the store has assigned the creation timestamp
func (j JobApplication) Synced() bool {
	return j.CreatedAt != nil
}

// DisplayStatus returns the status, falling back to Applied when unset
func (j JobApplication) DisplayStatus() Status {
	if j.Status == "" {
		return StatusApplied
	}
	return j.Status
}

// Input returns the mutable fields of the record
func (j JobApplication) Input() Input {
	return Input{
		CompanyName:     j.CompanyName,
		JobRole:         j.JobRole,
		ApplicationDate: j.ApplicationDate,
		Status:          j.DisplayStatus(),
		Notes:           j.Notes,
	}
}

// Input carries the fields a user submits for create and update.
// Updates always send every field so nothing is erased by a partial write.
type Input struct {
	CompanyName     string `json:"companyName" form:"companyName"`
	JobRole         string `json:"jobRole" form:"jobRole"`
	ApplicationDate string `json:"applicationDate" form:"applicationDate"`
	Status          Status `json:"status" form:"status"`
	Notes           string `json:"notes" form:"notes"`
}

// Normalize trims free-text fields
func (in Input) Normalize() Input {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.JobRole = strings.TrimSpace(in.JobRole)
	in.ApplicationDate = strings.TrimSpace(in.ApplicationDate)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

// Validate checks that every required field is present and well formed.
// It returns a *ValidationError, or nil.
func (in Input) Validate() error {
	var missing []string
	if in.CompanyName == "" {
		missing = append(missing, "companyName")
	}
	if in.JobRole == "" {
		missing = append(missing, "jobRole")
	}
	if in.ApplicationDate == "" {
		missing = append(missing, "applicationDate")
	}
	if in.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Reason: "required"}
	}

	if !in.Status.Valid() {
		return &ValidationError{Fields: []string{"status"}, Reason: "must be one of Applied, Interview, Rejected"}
	}
	if _, err := time.Parse(DateLayout, in.ApplicationDate); err != nil {
		return &ValidationError{Fields: []string{"applicationDate"}, Reason: "must be a YYYY-MM-DD date"}
	}
	return nil
}
