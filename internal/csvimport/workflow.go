// Package csvimport runs the two-phase CSV import: a read-only preview of
// the uploaded file, an optional column mapping edit, then the commit that
// creates products. Workflow state and the staged file are kept per session
// so each phase can be served by a different request.
package csvimport

import (
	"errors"
	"fmt"
	"time"

	"dxt-admin/internal/domain"
)

type State string

const (
	Idle         State = "idle"
	Previewing   State = "previewing"
	PreviewShown State = "preview-shown"
	Importing    State = "importing"
	ResultShown  State = "result-shown"
)

type Event string

const (
	EventPreview       Event = "preview"
	EventPreviewOK     Event = "preview_ok"
	EventPreviewFailed Event = "preview_failed"
	EventImport        Event = "import"
	EventImportOK      Event = "import_ok"
	EventImportFailed  Event = "import_failed"
	EventBack          Event = "back"
	EventReset         Event = "reset"
)

// transitions is the whole state machine. A failed preview returns to idle
// and a failed import to the preview, both keeping the error message.
var transitions = map[State]map[Event]State{
	Idle: {
		EventPreview: Previewing,
		EventReset:   Idle,
	},
	Previewing: {
		EventPreviewOK:     PreviewShown,
		EventPreviewFailed: Idle,
	},
	PreviewShown: {
		EventImport: Importing,
		EventBack:   Idle,
		EventReset:  Idle,
	},
	Importing: {
		EventImportOK:     ResultShown,
		EventImportFailed: PreviewShown,
	},
	ResultShown: {
		EventReset: Idle,
	},
}

var (
	ErrInvalidTransition = errors.New("invalid import state transition")
	ErrUnknownField      = errors.New("unknown column mapping field")
	ErrUnknownCategory   = errors.New("unknown product category")
)

// Messages shown inline on the import screen.
var (
	ErrNoFile           = domain.NewValidationError("Please select a CSV file")
	ErrInvalidFile      = domain.NewValidationError("Please select a valid CSV file")
	ErrStoreRequired    = domain.NewValidationError("Please select a store before uploading")
	ErrFileMissing      = domain.NewValidationError("CSV file not found. Please select the file again.")
	ErrStoreNotSelected = domain.NewValidationError("Store not selected. Please go back and select a store.")
)

const (
	MsgPreviewFailed = "Failed to preview CSV"
	MsgImportFailed  = "Failed to import products"
)

var Categories = []string{"FASHION", "FOOTWEAR", "ELECTRONICS", "COSMETICS", "ACCESSORIES"}

const DefaultCategory = "FASHION"

// Workflow is the import screen of one session.
type Workflow struct {
	State     State                `json:"state"`
	StoreID   string               `json:"storeId,omitempty"`
	StoreName string               `json:"storeName,omitempty"`
	Category  string               `json:"category"`
	FileName  string               `json:"fileName,omitempty"`
	Preview   *domain.CsvPreview   `json:"preview,omitempty"`
	Mapping   domain.ColumnMapping `json:"mapping"`
	Result    *domain.ImportResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	StartedAt time.Time            `json:"startedAt"`
}

func NewWorkflow() *Workflow {
	return &Workflow{State: Idle, Category: DefaultCategory}
}

// Fire moves the workflow along event, or returns ErrInvalidTransition.
func (w *Workflow) Fire(e Event) error {
	next, ok := transitions[w.State][e]
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, w.State)
	}
	w.State = next
	return nil
}

// Can reports whether e is allowed in the current state.
func (w *Workflow) Can(e Event) bool {
	_, ok := transitions[w.State][e]
	return ok
}

func (w *Workflow) SelectStore(id, name string) {
	w.StoreID = id
	w.StoreName = name
}

func (w *Workflow) SelectCategory(category string) error {
	for _, c := range Categories {
		if c == category {
			w.Category = category
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

// SetMapping repoints one of the nine logical fields. Only possible while
// the preview is shown.
func (w *Workflow) SetMapping(field, column string) error {
	if w.State != PreviewShown {
		return fmt.Errorf("%w: mapping edit on %s", ErrInvalidTransition, w.State)
	}
	if !w.Mapping.Set(field, column) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Back leaves the preview, keeping the file and store.
func (w *Workflow) Back() error {
	if err := w.Fire(EventBack); err != nil {
		return err
	}
	w.Preview = nil
	w.Error = ""
	return nil
}

// Reset starts over with no file. The selected store and category stay.
func (w *Workflow) Reset() error {
	if err := w.Fire(EventReset); err != nil {
		return err
	}
	w.FileName = ""
	w.Preview = nil
	w.Mapping = domain.ColumnMapping{}
	w.Result = nil
	w.Error = ""
	return nil
}

// Busy reports whether a backend call is running for this workflow.
func (w *Workflow) Busy() bool {
	return w.State == Previewing || w.State == Importing
}
