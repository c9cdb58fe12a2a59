package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/medtour/caseflow/internal/domain/application"
	"github.com/medtour/caseflow/internal/domain/document"
	"github.com/medtour/caseflow/internal/domain/patient"
	"github.com/medtour/caseflow/internal/platform/blobstore"
)

var (
	ErrSessionNotFound  = errors.New("intake session not found")
	ErrSessionFinal     = errors.New("intake session is no longer a draft")
	ErrStepInvalid      = errors.New("step validation failed")
	ErrDocumentNotFound = errors.New("staged document not found")
	ErrSubmitFailed     = errors.New("intake submit failed")
)

// uploadWorkers bounds the document fan-out during submit.
const uploadWorkers = 4

// StepError carries field-level messages for a failed step validation.
type StepError struct {
	Step   int
	Fields FieldErrors
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d validation failed", e.Step)
}

func (e *StepError) Unwrap() error { return ErrStepInvalid }

// Patients is the slice of the patient service the wizard needs.
type Patients interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, in patient.UpdateInput) (*patient.Patient, error)
}

// Applications is the slice of the application service the wizard needs.
type Applications interface {
	CreateApplication(ctx context.Context, a *application.Application) error
	DeleteApplication(ctx context.Context, id uuid.UUID) error
}

// Documents is the slice of the document service the wizard needs.
type Documents interface {
	Upload(ctx context.Context, in document.UploadInput) (*document.Document, error)
	DeleteByApplication(ctx context.Context, applicationID uuid.UUID) error
}

// Service drives the four-step intake wizard and the submit saga that
// turns a finished draft into a patient profile update, an application
// and its documents.
type Service struct {
	repo     Repository
	patients Patients
	apps     Applications
	docs     Documents
	staging  blobstore.BlobStore
	logger   zerolog.Logger
}

func NewService(repo Repository, patients Patients, apps Applications, docs Documents, staging blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, apps: apps, docs: docs, staging: staging, logger: logger}
}

// StartSession returns the patient's open draft or creates a fresh one.
func (s *Service) StartSession(ctx context.Context, patientID uuid.UUID) (*Session, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetDraftByPatient(ctx, patientID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	sess := &Session{
		ID:        uuid.New(),
		PatientID: patientID,
		Step:      MinStep,
		Documents: []StagedDocument{},
		Status:    StatusDraft,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

// SaveInput carries partial wizard updates. Nil fields are untouched.
type SaveInput struct {
	Personal  *PersonalInfo `json:"personal"`
	Health    *HealthInfo   `json:"health"`
	Confirmed *bool         `json:"confirmed"`
}

func (s *Service) Save(ctx context.Context, id uuid.UUID, in SaveInput) (*Session, error) {
	sess, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Personal != nil {
		sess.Personal = *in.Personal
	}
	if in.Health != nil {
		sess.Health = *in.Health
	}
	if in.Confirmed != nil {
		sess.Confirmed = *in.Confirmed
	}
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// StageDocument parks a file in the blobstore and records it on the
// session. The document row is only created at submit.
func (s *Service) StageDocument(ctx context.Context, id uuid.UUID, fileName, contentType string, content io.Reader) (*Session, error) {
	sess, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}

	meta, err := s.staging.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
	}, content)
	if err != nil {
		return nil, err
	}

	sess.Documents = append(sess.Documents, StagedDocument{
		ID:          uuid.New(),
		FileName:    meta.FileName,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		BlobID:      meta.ID,
	})
	if err := s.repo.Update(ctx, sess); err != nil {
		if derr := s.staging.Delete(ctx, meta.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("blob_id", meta.ID).Msg("orphaned staging blob")
		}
		return nil, err
	}
	return sess, nil
}

func (s *Service) RemoveStagedDocument(ctx context.Context, id, docID uuid.UUID) (*Session, error) {
	sess, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, d := range sess.Documents {
		if d.ID == docID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrDocumentNotFound
	}

	blobID := sess.Documents[idx].BlobID
	sess.Documents = append(sess.Documents[:idx], sess.Documents[idx+1:]...)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.staging.Delete(ctx, blobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Warn().Err(err).Str("blob_id", blobID).Msg("staging blob delete failed")
	}
	return sess, nil
}

// Advance validates the current step before moving forward.
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	if errs := sess.ValidateStep(sess.Step); len(errs) > 0 {
		return nil, &StepError{Step: sess.Step, Fields: errs}
	}
	sess.Step = ClampStep(sess.Step + 1)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Back never validates; data already entered stays on the session.
func (s *Service) Back(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Step = ClampStep(sess.Step - 1)
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// FileResult reports the fate of one staged document during submit.
type FileResult struct {
	FileName   string     `json:"file_name"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// SubmitReport is returned from Submit even when the saga compensates.
type SubmitReport struct {
	SessionID      uuid.UUID    `json:"session_id"`
	ApplicationID  *uuid.UUID   `json:"application_id,omitempty"`
	ProfileUpdated bool         `json:"profile_updated"`
	Files          []FileResult `json:"files"`
	Status         string       `json:"status"`
}

// Submit runs the intake saga: patch the patient profile, create the
// application, then upload staged documents with bounded concurrency.
// Any upload failure deletes the application and its documents before
// the error surfaces. The profile patch is not rolled back.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, author string) (*SubmitReport, error) {
	sess, err := s.draft(ctx, id)
	if err != nil {
		return nil, err
	}
	for step := MinStep; step <= MaxStep; step++ {
		if errs := sess.ValidateStep(step); len(errs) > 0 {
			return nil, &StepError{Step: step, Fields: errs}
		}
	}

	report := &SubmitReport{SessionID: sess.ID}

	if _, err := s.patients.UpdateDetails(ctx, sess.PatientID, patient.UpdateInput{
		Name:              strPtr(sess.Personal.FullName),
		DateOfBirth:       strPtr(sess.Personal.DateOfBirth),
		Gender:            strPtr(sess.Personal.Gender),
		Phone:             strPtr(sess.Personal.Phone),
		Passport:          strPtr(sess.Personal.Passport),
		Email:             strPtr(sess.Personal.Email),
		Complaints:        strPtr(sess.Health.Complaint),
		PreviousDiagnosis: strPtr(sess.Health.PreviousDiagnosis),
	}); err != nil {
		return nil, fmt.Errorf("update patient profile: %w", err)
	}
	report.ProfileUpdated = true

	app := &application.Application{
		PatientID:  sess.PatientID,
		ClinicName: sess.Health.ClinicName,
		Complaint:  sess.Health.Complaint,
		Status:     application.StatusNew,
	}
	if app.ClinicName == "" {
		app.ClinicName = "unassigned"
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return report, fmt.Errorf("create application: %w", err)
	}
	report.ApplicationID = &app.ID

	report.Files = s.uploadStaged(ctx, sess, app.ID, author)

	failed := false
	for _, f := range report.Files {
		if f.Error != "" {
			failed = true
			break
		}
	}

	if failed {
		s.compensate(ctx, app.ID)
		report.ApplicationID = nil
		report.Status = StatusFailed
		sess.Status = StatusFailed
		if err := s.repo.Update(ctx, sess); err != nil {
			s.logger.Error().Err(err).Str("session_id", sess.ID.String()).Msg("mark session failed")
		}
		return report, ErrSubmitFailed
	}

	s.cleanupStaging(ctx, sess)
	report.Status = StatusSubmitted
	sess.Status = StatusSubmitted
	if err := s.repo.Update(ctx, sess); err != nil {
		return report, err
	}
	return report, nil
}

// uploadStaged fans staged documents out to the document service with a
// worker cap. Results land at the document's own index, so no locking.
func (s *Service) uploadStaged(ctx context.Context, sess *Session, appID uuid.UUID, author string) []FileResult {
	results := make([]FileResult, len(sess.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i, staged := range sess.Documents {
		i, staged := i, staged
		results[i].FileName = staged.FileName
		g.Go(func() error {
			content, _, err := s.staging.Download(gctx, staged.BlobID)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			defer content.Close()

			data, err := io.ReadAll(content)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}

			doc, err := s.docs.Upload(gctx, document.UploadInput{
				PatientID:     sess.PatientID,
				ApplicationID: &appID,
				FileName:      staged.FileName,
				ContentType:   staged.ContentType,
				UploadedBy:    author,
				Content:       bytes.NewReader(data),
			})
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].DocumentID = &doc.ID
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) compensate(ctx context.Context, appID uuid.UUID) {
	if err := s.docs.DeleteByApplication(ctx, appID); err != nil {
		s.logger.Error().Err(err).Str("application_id", appID.String()).Msg("compensation: delete documents")
	}
	if err := s.apps.DeleteApplication(ctx, appID); err != nil {
		s.logger.Error().Err(err).Str("application_id", appID.String()).Msg("compensation: delete application")
	}
}

func (s *Service) cleanupStaging(ctx context.Context, sess *Session) {
	for _, staged := range sess.Documents {
		if err := s.staging.Delete(ctx, staged.BlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.logger.Warn().Err(err).Str("blob_id", staged.BlobID).Msg("staging blob cleanup failed")
		}
	}
}

func (s *Service) draft(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusDraft {
		return nil, ErrSessionFinal
	}
	return sess, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
