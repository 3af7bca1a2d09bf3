package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/apierr"
	"github.com/barangaylink/sglgb-backend/internal/platform/dbctx"
	"github.com/barangaylink/sglgb-backend/internal/platform/gcp"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
	"github.com/barangaylink/sglgb-backend/internal/types"
)

type MOVCreateInput struct {
	Filename         string
	OriginalFilename string
	FileSize         int64
	ContentType      string
	StoragePath      string
	UploadedByID     uuid.UUID
}

// MOVItem is an evidence row plus its object URL for list payloads.
type MOVItem struct {
	*types.MOV
	URL string `json:"url"`
}

// MOVService is the evidence ledger. It keeps one invariant above all:
// an evidence row exists only while its stored object exists. Attach writes
// the object before the row; Remove deletes the object before the row and
// aborts without touching the database when the object delete fails.
type MOVService interface {
	Attach(ctx context.Context, responseID uuid.UUID, input MOVCreateInput) (*types.MOV, error)
	UploadAndAttach(ctx context.Context, responseID uuid.UUID, input MOVCreateInput, section string, file io.Reader) (*types.MOV, error)
	UploadForAssessor(ctx context.Context, assessor *types.User, responseID uuid.UUID, input MOVCreateInput, section string, file io.Reader) (*types.MOV, error)
	Remove(ctx context.Context, movID uuid.UUID) error
	ListByResponse(ctx context.Context, responseID uuid.UUID) ([]*MOVItem, error)
	Download(ctx context.Context, movID uuid.UUID) (*types.MOV, *gcp.ObjectAttrs, io.ReadCloser, error)
}

type movService struct {
	db             *gorm.DB
	log            *logger.Logger
	bucketService  gcp.BucketService
	movRepo        repos.MOVRepo
	responseRepo   repos.ResponseRepo
	assessmentRepo repos.AssessmentRepo
	assessmentSvc  AssessmentService
}

func NewMOVService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucketService gcp.BucketService,
	movRepo repos.MOVRepo,
	responseRepo repos.ResponseRepo,
	assessmentRepo repos.AssessmentRepo,
	assessmentSvc AssessmentService,
) MOVService {
	serviceLog := baseLog.With("service", "MOVService")
	return &movService{
		db:             db,
		log:            serviceLog,
		bucketService:  bucketService,
		movRepo:        movRepo,
		responseRepo:   responseRepo,
		assessmentRepo: assessmentRepo,
		assessmentSvc:  assessmentSvc,
	}
}

func (s *movService) loadMutableResponse(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) (*types.AssessmentResponse, error) {
	response, err := s.responseRepo.GetByID(ctx, tx, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("response %s not found", responseID)
		}
		return nil, err
	}
	assessment, err := s.assessmentRepo.GetByID(ctx, tx, response.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if assessment.Status == types.AssessmentStatusValidated {
		return nil, apierr.Precondition("assessment is validated, evidence can no longer change")
	}
	return response, nil
}

// Attach records evidence that already exists in storage, then recomputes
// the response's completion and bumps the parent assessment so clients see
// the change. Duplicate attachments of the same object are allowed.
func (s *movService) Attach(ctx context.Context, responseID uuid.UUID, input MOVCreateInput) (*types.MOV, error) {
	var created *types.MOV
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		response, err := s.loadMutableResponse(ctx, tx, responseID)
		if err != nil {
			return err
		}

		mov := &types.MOV{
			ID:               uuid.New(),
			ResponseID:       responseID,
			Filename:         input.Filename,
			OriginalFilename: input.OriginalFilename,
			FileSize:         input.FileSize,
			ContentType:      input.ContentType,
			StoragePath:      input.StoragePath,
			Status:           types.MOVStatusUploaded,
			UploadedByID:     input.UploadedByID,
			UploadedAt:       time.Now().UTC(),
		}
		created, err = s.movRepo.Create(ctx, tx, mov)
		if err != nil {
			return fmt.Errorf("create mov: %w", err)
		}

		if _, err := s.assessmentSvc.RecomputeCompletion(dbctx.Context{Ctx: ctx, Tx: tx}, responseID); err != nil {
			return err
		}
		return s.assessmentRepo.Touch(ctx, tx, response.AssessmentID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("MOV attached",
		"mov_id", created.ID,
		"response_id", responseID,
		"storage_path", created.StoragePath,
	)
	return created, nil
}

// UploadAndAttach stores the object first, then records it. If the record
// fails the object is orphaned in storage, never the reverse; orphans are
// harmless and cheap to sweep.
func (s *movService) UploadAndAttach(ctx context.Context, responseID uuid.UUID, input MOVCreateInput, section string, file io.Reader) (*types.MOV, error) {
	response, err := s.loadMutableResponse(ctx, nil, responseID)
	if err != nil {
		return nil, err
	}

	movID := uuid.New()
	key := movStorageKey(response.AssessmentID, section, movID, input.Filename)
	if err := s.bucketService.UploadFile(dbctx.Context{Ctx: ctx}, key, input.ContentType, file); err != nil {
		return nil, fmt.Errorf("upload evidence object: %w", err)
	}

	input.StoragePath = key
	created, err := s.attachWithID(ctx, responseID, movID, input)
	if err != nil {
		// Roll the object back so storage does not accumulate blobs
		// for rejected attachments. Best effort only.
		if delErr := s.bucketService.DeleteFile(dbctx.Context{Ctx: ctx}, key); delErr != nil {
			s.log.Warn("Failed to clean up orphaned evidence object",
				"error", delErr,
				"storage_path", key,
			)
		}
		return nil, err
	}
	return created, nil
}

// UploadForAssessor attaches evidence on behalf of the barangay during
// review. The response's indicator must belong to the assessor's governance
// area; system admins are unrestricted.
func (s *movService) UploadForAssessor(ctx context.Context, assessor *types.User, responseID uuid.UUID, input MOVCreateInput, section string, file io.Reader) (*types.MOV, error) {
	response, err := s.responseRepo.GetByID(ctx, nil, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("response %s not found", responseID)
		}
		return nil, err
	}
	if assessor.Role != types.RoleSystemAdmin {
		if response.Indicator == nil {
			return nil, fmt.Errorf("response %s has no indicator loaded", responseID)
		}
		if assessor.GovernanceAreaID == nil || response.Indicator.GovernanceAreaID != *assessor.GovernanceAreaID {
			return nil, apierr.Forbidden("you can only upload evidence for responses in your governance area")
		}
	}
	return s.UploadAndAttach(ctx, responseID, input, section, file)
}

func (s *movService) attachWithID(ctx context.Context, responseID, movID uuid.UUID, input MOVCreateInput) (*types.MOV, error) {
	var created *types.MOV
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		response, err := s.loadMutableResponse(ctx, tx, responseID)
		if err != nil {
			return err
		}
		mov := &types.MOV{
			ID:               movID,
			ResponseID:       responseID,
			Filename:         input.Filename,
			OriginalFilename: input.OriginalFilename,
			FileSize:         input.FileSize,
			ContentType:      input.ContentType,
			StoragePath:      input.StoragePath,
			Status:           types.MOVStatusUploaded,
			UploadedByID:     input.UploadedByID,
			UploadedAt:       time.Now().UTC(),
		}
		created, err = s.movRepo.Create(ctx, tx, mov)
		if err != nil {
			return fmt.Errorf("create mov: %w", err)
		}
		if _, err := s.assessmentSvc.RecomputeCompletion(dbctx.Context{Ctx: ctx, Tx: tx}, responseID); err != nil {
			return err
		}
		return s.assessmentRepo.Touch(ctx, tx, response.AssessmentID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Remove deletes evidence in two phases. Phase one deletes the stored
// object; any failure aborts the whole operation with a consistency error
// and zero database writes. Phase two, in one transaction, deletes the row,
// recomputes completion, and bumps the parent assessment.
func (s *movService) Remove(ctx context.Context, movID uuid.UUID) error {
	mov, err := s.movRepo.GetByID(ctx, nil, movID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("mov %s not found", movID)
		}
		return err
	}
	response, err := s.loadMutableResponse(ctx, nil, mov.ResponseID)
	if err != nil {
		return err
	}

	if err := s.bucketService.DeleteFile(dbctx.Context{Ctx: ctx}, mov.StoragePath); err != nil {
		s.log.Error("Evidence object delete failed, aborting removal",
			"error", err,
			"mov_id", movID,
			"storage_path", mov.StoragePath,
		)
		return apierr.Consistency("failed to delete evidence object %q: %v", mov.StoragePath, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.movRepo.DeleteByID(ctx, tx, movID); err != nil {
			return fmt.Errorf("delete mov record: %w", err)
		}
		if _, err := s.assessmentSvc.RecomputeCompletion(dbctx.Context{Ctx: ctx, Tx: tx}, mov.ResponseID); err != nil {
			return err
		}
		return s.assessmentRepo.Touch(ctx, tx, response.AssessmentID)
	})
	if err != nil {
		return err
	}
	s.log.Info("MOV removed", "mov_id", movID, "response_id", mov.ResponseID)
	return nil
}

func (s *movService) ListByResponse(ctx context.Context, responseID uuid.UUID) ([]*MOVItem, error) {
	movs, err := s.movRepo.GetByResponseID(ctx, nil, responseID)
	if err != nil {
		return nil, err
	}
	items := make([]*MOVItem, 0, len(movs))
	for _, mov := range movs {
		items = append(items, &MOVItem{
			MOV: mov,
			URL: s.bucketService.GetPublicURL(mov.StoragePath),
		})
	}
	return items, nil
}

func (s *movService) Download(ctx context.Context, movID uuid.UUID) (*types.MOV, *gcp.ObjectAttrs, io.ReadCloser, error) {
	mov, err := s.movRepo.GetByID(ctx, nil, movID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, apierr.NotFound("mov %s not found", movID)
		}
		return nil, nil, nil, err
	}
	attrs, err := s.bucketService.GetObjectAttrs(ctx, mov.StoragePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stat evidence object: %w", err)
	}
	reader, err := s.bucketService.DownloadFile(ctx, mov.StoragePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open evidence object: %w", err)
	}
	return mov, attrs, reader, nil
}

func movStorageKey(assessmentID uuid.UUID, section string, movID uuid.UUID, filename string) string {
	if section != "" {
		return fmt.Sprintf("movs/%s/%s/%s_%s", assessmentID, section, movID, filename)
	}
	return fmt.Sprintf("movs/%s/%s_%s", assessmentID, movID, filename)
}
