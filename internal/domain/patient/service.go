package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medtour/caseflow/internal/domain/stage"
	"github.com/medtour/caseflow/internal/domain/tag"
	"github.com/medtour/caseflow/internal/platform/realtime"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrBlankComment    = errors.New("stage transition comment must not be blank")
)

// StageDirectory is the slice of the stage service this package needs.
type StageDirectory interface {
	GetStage(ctx context.Context, id string) (*stage.Stage, error)
	ListStages(ctx context.Context) ([]*stage.Stage, error)
}

// TagDirectory resolves tags for reads and validates them for writes.
type TagDirectory interface {
	GetTag(ctx context.Context, id string) (*tag.Tag, error)
	Resolve(ctx context.Context, id string) *tag.Tag
}

// TxRunner executes fn atomically; repository calls made with the context
// it passes join the same transaction.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

// NopTxRunner runs fn without a transaction, for tests.
func NopTxRunner(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	repo      Repository
	stages    StageDirectory
	tags      TagDirectory
	runTx     TxRunner
	publisher realtime.Publisher
}

func NewService(repo Repository, stages StageDirectory, tags TagDirectory, runTx TxRunner, publisher realtime.Publisher) *Service {
	if runTx == nil {
		runTx = NopTxRunner
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Service{repo: repo, stages: stages, tags: tags, runTx: runTx, publisher: publisher}
}

// CreatePatient validates the card, defaults stage and tag, and writes the
// patient together with its initial history entry in one transaction.
func (s *Service) CreatePatient(ctx context.Context, p *Patient, author string) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidPhone(p.Phone) {
		return fmt.Errorf("phone must be 9 digits")
	}
	if p.StageID == "" {
		p.StageID = stage.DefaultStageID
	}
	if _, err := s.stages.GetStage(ctx, p.StageID); err != nil {
		return fmt.Errorf("stage %q: %w", p.StageID, err)
	}
	if p.TagID == "" {
		p.TagID = tag.DefaultTagID
	}
	if _, err := s.tags.GetTag(ctx, p.TagID); err != nil {
		return fmt.Errorf("tag %q: %w", p.TagID, err)
	}
	p.CreatedBy = author

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, &HistoryEntry{
			PatientID: p.ID,
			Date:      time.Now().UTC(),
			Author:    author,
			Text:      InitialHistoryText,
		})
	})
	if err != nil {
		return err
	}

	_ = s.publisher.Publish(ctx, realtime.Event{
		Type:      realtime.EventPatientCreated,
		Topic:     realtime.TopicBoard,
		PatientID: p.ID.String(),
	})
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// UpdateDetails applies a partial profile patch. Missing fields stay as
// they are; last write wins between concurrent editors.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be blank")
		}
		p.Name = name
	}
	if in.Phone != nil {
		if !ValidPhone(*in.Phone) {
			return nil, fmt.Errorf("phone must be 9 digits")
		}
		p.Phone = *in.Phone
	}
	if in.Source != nil {
		p.Source = in.Source
	}
	if in.Passport != nil {
		p.Passport = in.Passport
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != nil {
		p.Gender = in.Gender
	}
	if in.Email != nil {
		p.Email = in.Email
	}
	if in.Complaints != nil {
		p.Complaints = in.Complaints
	}
	if in.PreviousDiagnosis != nil {
		p.PreviousDiagnosis = in.PreviousDiagnosis
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ChangeStage moves a patient to another column. The target stage must
// exist and the comment must be non-blank; the stage update and the history
// append happen in one transaction so a failure leaves no trace. Moving to
// the current stage is a no-op and records nothing.
func (s *Service) ChangeStage(ctx context.Context, id uuid.UUID, stageID, comment, author string) (*Patient, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrBlankComment
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StageID == stageID {
		return p, nil
	}
	if _, err := s.stages.GetStage(ctx, stageID); err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStage(ctx, id, stageID); err != nil {
			return err
		}
		return s.repo.AddHistory(ctx, &HistoryEntry{
			PatientID: id,
			Date:      time.Now().UTC(),
			Author:    author,
			Text:      comment,
		})
	})
	if err != nil {
		return nil, err
	}

	p.StageID = stageID
	_ = s.publisher.Publish(ctx, realtime.Event{
		Type:      realtime.EventStageChanged,
		Topic:     realtime.TopicBoard,
		PatientID: id.String(),
	})
	return p, nil
}

// ChangeTag reassigns the classification tag. Unlike reads, writes validate
// the tag id hard.
func (s *Service) ChangeTag(ctx context.Context, id uuid.UUID, tagID string) (*Patient, error) {
	if _, err := s.tags.GetTag(ctx, tagID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTag(ctx, id, tagID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetHistory(ctx context.Context, id uuid.UUID) ([]*HistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// Board groups all patients into stage columns with resolved tags. A tag id
// that no longer resolves renders as the fallback tag, never an error.
func (s *Service) Board(ctx context.Context) ([]*BoardColumn, error) {
	stages, err := s.stages.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	patients, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]*tag.Tag)
	tagFor := func(id string) *tag.Tag {
		if t, ok := resolved[id]; ok {
			return t
		}
		t := s.tags.Resolve(ctx, id)
		resolved[id] = t
		return t
	}

	byStage := make(map[string][]*BoardCard)
	for _, p := range patients {
		byStage[p.StageID] = append(byStage[p.StageID], &BoardCard{
			Patient: p,
			Tag:     tagFor(p.TagID),
		})
	}

	columns := make([]*BoardColumn, 0, len(stages))
	for _, st := range stages {
		cards := byStage[st.ID]
		if cards == nil {
			cards = []*BoardCard{}
		}
		columns = append(columns, &BoardColumn{Stage: st, Cards: cards})
	}
	return columns, nil
}
