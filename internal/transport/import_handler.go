package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dxt-admin/internal/csvimport"
	"dxt-admin/internal/domain"
	"dxt-admin/internal/middleware"
	"dxt-admin/internal/selector"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadSize caps an uploaded CSV or workbook.
const maxUploadSize = 32 << 20

const importPage = "/dashboard/products/import-csv"

const mappingPrefix = "mapping."

type mappingRow struct {
	Field  string
	Column string
}

type importView struct {
	Workflow   *csvimport.Workflow
	Categories []string
	Mapping    []mappingRow
	Result     *csvimport.ResultView
	Selected   *domain.StoreListItem
}

type ImportHandler struct {
	base
	stash       *csvimport.Stash
	selectors   *selector.Registry
	busyTimeout time.Duration
}

func NewImportHandler(renderer *Renderer, stash *csvimport.Stash, selectors *selector.Registry, busyTimeout time.Duration, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		base:        base{renderer: renderer, logger: logger},
		stash:       stash,
		selectors:   selectors,
		busyTimeout: busyTimeout,
	}
}

func (h *ImportHandler) RegisterRoutes(r chi.Router) {
	r.Route(importPage, func(r chi.Router) {
		r.Get("/", h.Show)
		r.Post("/store", h.SelectStore)
		r.Post("/preview", h.Preview)
		r.Post("/mapping", h.Mapping)
		r.Post("/confirm", h.Confirm)
		r.Post("/back", h.Back)
		r.Post("/reset", h.Reset)
	})
}

func (h *ImportHandler) service(sess *middleware.Session) *csvimport.Service {
	return csvimport.NewService(sess.Client, h.stash, h.busyTimeout, h.logger)
}

// Show renders the screen for the session's current import state.
func (h *ImportHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	wf, err := h.service(sess).Load(r.Context(), sess.Scope.ID())
	if err != nil {
		h.logger.Error("Failed to load import workflow", zap.Error(err))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	view := importView{Workflow: wf, Categories: csvimport.Categories}
	for _, field := range domain.MappingFields {
		column, _ := wf.Mapping.Get(field)
		view.Mapping = append(view.Mapping, mappingRow{Field: field, Column: column})
	}
	if wf.Result != nil {
		result := csvimport.NewResultView(*wf.Result)
		view.Result = &result
	}
	if store, ok := h.selectors.For(sess.Scope.ID()).Selected(); ok {
		view.Selected = &store
	}
	h.render(w, r, sess, http.StatusOK, "import_csv", "Import Products from CSV", "products", view)
}

// done finishes a workflow step. Problems the workflow recorded are shown
// on the screen itself; anything else becomes a notification.
func (h *ImportHandler) done(w http.ResponseWriter, r *http.Request, sess *middleware.Session, wf *csvimport.Workflow, err error) {
	switch {
	case err == nil:
	case errors.Is(err, csvimport.ErrInvalidTransition):
		sess.Failure(r.Context(), "That action is not available right now")
	case errors.Is(err, csvimport.ErrUnknownField):
		sess.Failure(r.Context(), "Invalid column mapping")
	case wf != nil && wf.Error != "":
	default:
		h.logger.Error("Import step failed", zap.Error(err))
		sess.Failure(r.Context(), "Something went wrong. Please try again.")
	}
	seeOther(w, r, importPage)
}

// storeFrom reads the target store from the form, falling back to the
// store picked in the selector.
func (h *ImportHandler) storeFrom(r *http.Request, sess *middleware.Session) (id, name string) {
	id = strings.TrimSpace(r.FormValue("storeId"))
	name = strings.TrimSpace(r.FormValue("storeName"))
	if id != "" {
		return id, name
	}
	if store, ok := h.selectors.For(sess.Scope.ID()).Selected(); ok {
		return store.ID, store.StoreName
	}
	return "", ""
}

func (h *ImportHandler) SelectStore(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id, name := h.storeFrom(r, sess)
	wf, err := h.service(sess).SelectStore(r.Context(), sess.Scope.ID(), id, name)
	h.done(w, r, sess, wf, err)
}

// Preview uploads the chosen file for a dry run. Without a file the staged
// one is previewed again.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("Failed to parse upload", zap.Error(err))
		sess.Failure(r.Context(), "The file could not be uploaded")
		seeOther(w, r, importPage)
		return
	}

	upload, err := readUpload(r)
	if err != nil {
		h.logger.Warn("Failed to read upload", zap.Error(err))
		sess.Failure(r.Context(), "The file could not be uploaded")
		seeOther(w, r, importPage)
		return
	}

	id, name := h.storeFrom(r, sess)
	wf, err := h.service(sess).Preview(r.Context(), sess.Scope.ID(), csvimport.PreviewInput{
		StoreID:   id,
		StoreName: name,
		Category:  r.FormValue("category"),
		File:      upload,
	})
	h.done(w, r, sess, wf, err)
}

func readUpload(r *http.Request) (*csvimport.Upload, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", header.Filename, err)
	}
	return &csvimport.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// mappingEdits collects the mapping.<field> inputs.
func mappingEdits(r *http.Request) map[string]string {
	edits := map[string]string{}
	for key, values := range r.PostForm {
		if field, ok := strings.CutPrefix(key, mappingPrefix); ok && len(values) > 0 {
			edits[field] = strings.TrimSpace(values[0])
		}
	}
	return edits
}

func (h *ImportHandler) Mapping(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	wf, err := h.service(sess).EditMapping(r.Context(), sess.Scope.ID(), mappingEdits(r))
	h.done(w, r, sess, wf, err)
}

func (h *ImportHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	wf, err := h.service(sess).Confirm(r.Context(), sess.Scope.ID(), mappingEdits(r))
	h.done(w, r, sess, wf, err)
}

func (h *ImportHandler) Back(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	wf, err := h.service(sess).Back(r.Context(), sess.Scope.ID())
	h.done(w, r, sess, wf, err)
}

func (h *ImportHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	wf, err := h.service(sess).Reset(r.Context(), sess.Scope.ID())
	h.done(w, r, sess, wf, err)
}
