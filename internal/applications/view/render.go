package view

import "github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"

// MessageKind selects how a transient message is styled
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message is a transient, auto-dismissing notice
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
	Err  error       `json:"-"` // cause, for error messages
}

// State is everything the controller owns. Render maps it to a View.
type State struct {
	Cache        []domain.JobApplication
	EditTarget   string
	Criteria     Criteria
	Form         domain.Input
	// FormRevision counts changes to Form and EditTarget
	FormRevision uint64
	Loading      bool
	Loaded       bool
	Submitting   bool
	Message      *Message
}

// Editing reports whether the form is in edit mode
func (s State) Editing() bool {
	return s.EditTarget != ""
}

// View is the element tree for one render pass
type View struct {
	Loading  bool     `json:"loading"`
	Empty    bool     `json:"empty"`
	Message  *Message `json:"message,omitempty"`
	Form     FormView `json:"form"`
	Criteria Criteria `json:"criteria"`
	Items    []Item   `json:"items"`
	Total    int      `json:"total"`
}

// FormView describes the create/edit form
type FormView struct {
	Title          string          `json:"title"`
	SubmitLabel    string          `json:"submitLabel"`
	Editing        bool            `json:"editing"`
	EditID         string          `json:"editId,omitempty"`
	CancelVisible  bool            `json:"cancelVisible"`
	SubmitDisabled bool            `json:"submitDisabled"`
	Values         domain.Input    `json:"values"`
	Statuses       []domain.Status `json:"statuses"`
	// Revision moves only when the controller replaces the form contents.
	// Clients keep unsent input while it stays the same.
	Revision       uint64          `json:"revision"`
}

// Item is one row of the visible list
type Item struct {
	ID          string        `json:"id"`
	Company     string        `json:"company"`
	Role        string        `json:"role"`
	AppliedOn   string        `json:"appliedOn"`
	Synced      bool          `json:"synced"`
	SyncLabel   string        `json:"syncLabel"`
	Notes       string        `json:"notes"`
	Status      domain.Status `json:"status"`
	StatusClass string        `json:"statusClass"`
	Editing     bool          `json:"editing"`
}

// Render builds the View for s
func Render(s State) View {
	visible := DeriveVisibleList(s.Cache, s.Criteria)

	items := make([]Item, 0, len(visible))
	for _, app := range visible {
		items = append(items, renderItem(app, app.ID == s.EditTarget))
	}

	form := FormView{
		Title:          "Add Job Application",
		SubmitLabel:    "Add Application",
		SubmitDisabled: s.Submitting,
		Values:         s.Form,
		Statuses:       domain.Statuses,
		Revision:       s.FormRevision,
	}
	if s.Editing() {
		form.Title = "Edit Job Application"
		form.SubmitLabel = "Save Changes"
		form.Editing = true
		form.EditID = s.EditTarget
		form.CancelVisible = true
	}

	return View{
		Loading:  s.Loading,
		Empty:    !s.Loading && len(items) == 0,
		Message:  s.Message,
		Form:     form,
		Criteria: s.Criteria,
		Items:    items,
		Total:    len(s.Cache),
	}
}

func renderItem(app domain.JobApplication, editing bool) Item {
	company := app.CompanyName
	if company == "" {
		company = "Unknown company"
	}

	syncLabel := "Pending timestamp"
	if app.Synced() {
		syncLabel = "Synced"
	}

	status := app.DisplayStatus()
	return Item{
		ID:          app.ID,
		Company:     company,
		Role:        app.JobRole,
		AppliedOn:   app.ApplicationDate,
		Synced:      app.Synced(),
		SyncLabel:   syncLabel,
		Notes:       app.Notes,
		Status:      status,
		StatusClass: statusClass(status),
		Editing:     editing,
	}
}

func statusClass(s domain.Status) string {
	switch s {
	case domain.StatusInterview:
		return "job-status-interview"
	case domain.StatusRejected:
		return "job-status-rejected"
	default:
		return "job-status-applied"
	}
}
