package csvimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dxt-admin/internal/apiclient"
	"dxt-admin/internal/domain"

	"go.uber.org/zap"
)

const (
	PreviewPath = "/admin/products/csv/preview"
	ImportPath  = "/admin/products/csv/import"
)

// defaultLockTTL bounds the phase lock when no busy window is configured.
const defaultLockTTL = 10 * time.Minute

// API is the backend client used for the two upload phases.
type API interface {
	PostMultipart(ctx context.Context, path string, form apiclient.Multipart, out any) error
}

// PreviewInput is a submitted upload form. A nil File re-previews the
// staged file.
type PreviewInput struct {
	StoreID   string
	StoreName string
	Category  string
	File      *Upload
}

type Service struct {
	api         API
	stash       *Stash
	busyTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewService binds the workflow to one admin's client. A preview or import
// still marked running after busyTimeout is treated as failed.
func NewService(api API, stash *Stash, busyTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		api:         api,
		stash:       stash,
		busyTimeout: busyTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Load returns the session's workflow.
func (s *Service) Load(ctx context.Context, sid string) (*Workflow, error) {
	w, err := s.stash.Workflow(ctx, sid)
	if err != nil {
		return nil, err
	}
	s.recover(w)
	return w, nil
}

// recover fails a phase whose request never recorded an outcome.
func (s *Service) recover(w *Workflow) {
	if !w.Busy() || s.busyTimeout <= 0 || s.now().Sub(w.StartedAt) <= s.busyTimeout {
		return
	}
	if w.State == Previewing {
		_ = w.Fire(EventPreviewFailed)
		w.Error = MsgPreviewFailed
	} else {
		_ = w.Fire(EventImportFailed)
		w.Error = MsgImportFailed
	}
}

func (s *Service) save(ctx context.Context, sid string, w *Workflow) error {
	if err := s.stash.SaveWorkflow(ctx, sid, w); err != nil {
		s.logger.Error("Failed to save import workflow", zap.String("state", string(w.State)), zap.Error(err))
		return err
	}
	return nil
}

// claim takes the session's phase lock so one preview or commit runs at a
// time. A request losing the race gets ErrInvalidTransition.
func (s *Service) claim(ctx context.Context, sid, phase string) (func(), error) {
	ttl := s.busyTimeout
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	ok, err := s.stash.Lock(ctx, sid, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s while another upload runs", ErrInvalidTransition, phase)
	}
	return func() {
		if err := s.stash.Unlock(context.WithoutCancel(ctx), sid); err != nil {
			s.logger.Warn("Failed to release import lock", zap.Error(err))
		}
	}, nil
}

// reject records a validation problem on the current screen.
func (s *Service) reject(ctx context.Context, sid string, w *Workflow, err error) (*Workflow, error) {
	var v *domain.ValidationError
	if errors.As(err, &v) {
		w.Error = v.Message
	} else {
		w.Error = err.Error()
	}
	if saveErr := s.save(ctx, sid, w); saveErr != nil {
		return w, saveErr
	}
	return w, err
}

// SelectStore sets the target store on the upload screen.
func (s *Service) SelectStore(ctx context.Context, sid, id, name string) (*Workflow, error) {
	w, err := s.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if w.State != Idle {
		return w, fmt.Errorf("%w: store change on %s", ErrInvalidTransition, w.State)
	}
	w.SelectStore(id, name)
	w.Error = ""
	return w, s.save(ctx, sid, w)
}

// Preview uploads the file for a dry run. Nothing is created by the backend.
func (s *Service) Preview(ctx context.Context, sid string, in PreviewInput) (*Workflow, error) {
	release, err := s.claim(ctx, sid, "preview")
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := s.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !w.Can(EventPreview) {
		return w, fmt.Errorf("%w: preview on %s", ErrInvalidTransition, w.State)
	}

	if in.StoreID != "" {
		w.SelectStore(in.StoreID, in.StoreName)
	}
	if in.Category != "" {
		if err := w.SelectCategory(in.Category); err != nil {
			return s.reject(ctx, sid, w, err)
		}
	}

	var upload Upload
	if in.File != nil && !in.File.Empty() {
		upload, err = PackageUpload(*in.File)
		if err != nil {
			return s.reject(ctx, sid, w, err)
		}
		if err := s.stash.SaveFile(ctx, sid, upload); err != nil {
			return nil, err
		}
	} else {
		upload, err = s.stash.File(ctx, sid)
		if errors.Is(err, ErrFileMissing) {
			return s.reject(ctx, sid, w, ErrNoFile)
		}
		if err != nil {
			return nil, err
		}
	}
	if w.StoreID == "" {
		return s.reject(ctx, sid, w, ErrStoreRequired)
	}

	_ = w.Fire(EventPreview)
	w.FileName = upload.Name
	w.StartedAt = s.now()
	w.Error = ""
	w.Preview = nil
	if err := s.save(ctx, sid, w); err != nil {
		return nil, err
	}

	var preview domain.CsvPreview
	err = s.api.PostMultipart(ctx, PreviewPath, apiclient.Multipart{
		FileField:   "file",
		FileName:    upload.Name,
		ContentType: upload.ContentType,
		File:        upload.Data,
		Fields:      []apiclient.Field{{Name: "sellerId", Value: w.StoreID}},
	}, &preview)
	if err != nil {
		_ = w.Fire(EventPreviewFailed)
		w.Error = apiclient.MessageOr(err, MsgPreviewFailed)
		s.logger.Warn("CSV preview failed", zap.String("store_id", w.StoreID), zap.Error(err))
		return w, errors.Join(err, s.save(context.WithoutCancel(ctx), sid, w))
	}

	_ = w.Fire(EventPreviewOK)
	w.Preview = &preview
	w.Mapping = preview.DetectedColumns
	s.logger.Info("CSV preview ready",
		zap.String("store_id", w.StoreID),
		zap.Int("total_rows", preview.TotalRows),
		zap.Int("valid_rows", preview.ValidRows),
		zap.Int("invalid_rows", preview.InvalidRows),
	)
	return w, s.save(ctx, sid, w)
}

// EditMapping applies mapping edits keyed by logical field name.
func (s *Service) EditMapping(ctx context.Context, sid string, edits map[string]string) (*Workflow, error) {
	w, err := s.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := applyMapping(w, edits); err != nil {
		return w, err
	}
	return w, s.save(ctx, sid, w)
}

func applyMapping(w *Workflow, edits map[string]string) error {
	next := *w
	for field, column := range edits {
		if err := next.SetMapping(field, column); err != nil {
			return err
		}
	}
	w.Mapping = next.Mapping
	return nil
}

// Confirm applies the final mapping edits and commits the staged file. The
// commit outlives the request so its outcome is stored even if the admin
// navigates away.
func (s *Service) Confirm(ctx context.Context, sid string, edits map[string]string) (*Workflow, error) {
	release, err := s.claim(ctx, sid, "import")
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := s.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !w.Can(EventImport) {
		return w, fmt.Errorf("%w: import on %s", ErrInvalidTransition, w.State)
	}
	if err := applyMapping(w, edits); err != nil {
		return w, err
	}

	upload, err := s.stash.File(ctx, sid)
	if errors.Is(err, ErrFileMissing) {
		return s.reject(ctx, sid, w, ErrFileMissing)
	}
	if err != nil {
		return nil, err
	}
	if w.StoreID == "" {
		return s.reject(ctx, sid, w, ErrStoreNotSelected)
	}

	mapping, err := json.Marshal(w.Mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column mapping: %w", err)
	}
	fields := []apiclient.Field{
		{Name: "sellerId", Value: w.StoreID},
		{Name: "columnMapping", Value: string(mapping)},
		{Name: "downloadImages", Value: "true"},
	}
	if w.Category != "" {
		fields = append(fields, apiclient.Field{Name: "category", Value: w.Category})
	}

	_ = w.Fire(EventImport)
	w.StartedAt = s.now()
	w.Error = ""
	if err := s.save(ctx, sid, w); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	var result domain.ImportResult
	err = s.api.PostMultipart(ctx, ImportPath, apiclient.Multipart{
		FileField:   "file",
		FileName:    upload.Name,
		ContentType: upload.ContentType,
		File:        upload.Data,
		Fields:      fields,
	}, &result)
	if err != nil {
		_ = w.Fire(EventImportFailed)
		w.Error = apiclient.MessageOr(err, MsgImportFailed)
		s.logger.Warn("CSV import failed", zap.String("store_id", w.StoreID), zap.Error(err))
		return w, errors.Join(err, s.save(ctx, sid, w))
	}

	_ = w.Fire(EventImportOK)
	w.Result = &result
	w.Preview = nil
	s.logger.Info("CSV import finished",
		zap.String("store_id", w.StoreID),
		zap.Bool("success", result.Success),
		zap.Int("products_created", result.ProductsCreated),
		zap.Int("variants_created", result.VariantsCreated),
		zap.Int("failed", result.Failed),
		zap.Int64("duration_ms", result.Duration),
	)
	if err := s.stash.DropFile(ctx, sid); err != nil {
		s.logger.Warn("Failed to drop staged file", zap.Error(err))
	}
	return w, s.save(ctx, sid, w)
}

// Back returns from the preview to the upload screen.
func (s *Service) Back(ctx context.Context, sid string) (*Workflow, error) {
	w, err := s.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := w.Back(); err != nil {
		return w, err
	}
	return w, s.save(ctx, sid, w)
}

// Reset starts a new import, dropping the staged file.
func (s *Service) Reset(ctx context.Context, sid string) (*Workflow, error) {
	w, err := s.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := w.Reset(); err != nil {
		return w, err
	}
	if err := s.stash.DropFile(ctx, sid); err != nil {
		return nil, err
	}
	return w, s.save(ctx, sid, w)
}
