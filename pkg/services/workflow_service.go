package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// SegmentTranslator is the boundary to whatever actually produces
// translations for a workflow's segments: human translators today, possibly
// machine assistance later. The engine tracks state; it never translates.
type SegmentTranslator interface {
	// TranslateWorkflow is asked to make progress on one pending workflow.
	TranslateWorkflow(ctx context.Context, workflow *models.TranslationWorkflow) error
}

// loggingTranslator records that a workflow is awaiting external translation.
type loggingTranslator struct {
	logger *zap.Logger
}

var _ SegmentTranslator = (*loggingTranslator)(nil)

// NewLoggingTranslator creates the default SegmentTranslator, which only
// logs: translation work happens outside this service.
func NewLoggingTranslator(logger *zap.Logger) SegmentTranslator {
	return &loggingTranslator{logger: logger.Named("segment-translator")}
}

func (t *loggingTranslator) TranslateWorkflow(_ context.Context, workflow *models.TranslationWorkflow) error {
	t.logger.Info("Workflow awaiting translation",
		zap.String("workflow_id", workflow.ID.String()),
		zap.String("target_language", workflow.TargetLanguage),
		zap.String("priority", workflow.Priority))
	return nil
}

// WorkflowService manages translation workflow state.
type WorkflowService interface {
	// GetWorkflow returns a workflow by ID.
	GetWorkflow(ctx context.Context, workflowID uuid.UUID) (*models.TranslationWorkflow, error)

	// ListWorkflows returns workflows filtered by status and target
	// language with pagination.
	ListWorkflows(ctx context.Context, status models.WorkflowStatus, targetLanguage string, limit, offset int) ([]*models.TranslationWorkflow, error)

	// GetActiveWorkflows returns all non-terminal workflows in processing
	// order.
	GetActiveWorkflows(ctx context.Context) ([]*models.TranslationWorkflow, error)

	// UpdateStatus advances a workflow through its state machine. Invalid
	// transitions return apperrors.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) (*models.TranslationWorkflow, error)

	// UpdateProgress records segment counters and recomputes the progress
	// percentage.
	UpdateProgress(ctx context.Context, workflowID uuid.UUID, total, translated, validated int) (*models.TranslationWorkflow, error)

	// UpdateCulturalReview records a reviewer verdict on a workflow that
	// requires cultural review.
	UpdateCulturalReview(ctx context.Context, workflowID uuid.UUID, reviewer, status, notes string) (*models.TranslationWorkflow, error)

	// GetCulturalValidationQueue returns workflows awaiting cultural review
	// with their change context.
	GetCulturalValidationQueue(ctx context.Context) ([]*models.CulturalValidationItem, error)

	// ProcessPendingWorkflows sweeps pending workflows and hands each to
	// the SegmentTranslator. Per-workflow failures are logged and skipped.
	ProcessPendingWorkflows(ctx context.Context) (int, error)
}

type workflowService struct {
	workflowRepo repositories.WorkflowRepository
	translator   SegmentTranslator
	logger       *zap.Logger
}

var _ WorkflowService = (*workflowService)(nil)

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(workflowRepo repositories.WorkflowRepository, translator SegmentTranslator, logger *zap.Logger) WorkflowService {
	return &workflowService{
		workflowRepo: workflowRepo,
		translator:   translator,
		logger:       logger.Named("workflow-service"),
	}
}

func (s *workflowService) GetWorkflow(ctx context.Context, workflowID uuid.UUID) (*models.TranslationWorkflow, error) {
	workflow, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow == nil {
		return nil, apperrors.ErrNotFound
	}
	return workflow, nil
}

func (s *workflowService) ListWorkflows(ctx context.Context, status models.WorkflowStatus, targetLanguage string, limit, offset int) ([]*models.TranslationWorkflow, error) {
	if status != "" && !models.IsValidWorkflowStatus(status) {
		return nil, fmt.Errorf("%w: unknown workflow status %q", apperrors.ErrInvalidTransition, status)
	}
	return s.workflowRepo.List(ctx, status, targetLanguage, limit, offset)
}

func (s *workflowService) GetActiveWorkflows(ctx context.Context) ([]*models.TranslationWorkflow, error) {
	return s.workflowRepo.GetActive(ctx)
}

func (s *workflowService) UpdateStatus(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) (*models.TranslationWorkflow, error) {
	if !models.IsValidWorkflowStatus(status) {
		return nil, fmt.Errorf("%w: unknown workflow status %q", apperrors.ErrInvalidTransition, status)
	}

	workflow, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !workflow.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, workflow.Status, status)
	}

	if err := s.workflowRepo.UpdateStatus(ctx, workflowID, status); err != nil {
		return nil, err
	}

	s.logger.Info("Workflow status updated",
		zap.String("workflow_id", workflowID.String()),
		zap.String("from", string(workflow.Status)),
		zap.String("to", string(status)))

	return s.GetWorkflow(ctx, workflowID)
}

func (s *workflowService) UpdateProgress(ctx context.Context, workflowID uuid.UUID, total, translated, validated int) (*models.TranslationWorkflow, error) {
	if total < 0 || translated < 0 || validated < 0 {
		return nil, fmt.Errorf("segment counters must be non-negative")
	}
	if translated > total || validated > total {
		return nil, fmt.Errorf("segment counters exceed total segments")
	}

	if _, err := s.GetWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}

	if err := s.workflowRepo.UpdateProgress(ctx, workflowID, total, translated, validated); err != nil {
		return nil, err
	}

	return s.GetWorkflow(ctx, workflowID)
}

func (s *workflowService) UpdateCulturalReview(ctx context.Context, workflowID uuid.UUID, reviewer, status, notes string) (*models.TranslationWorkflow, error) {
	switch status {
	case models.CulturalReviewPending, models.CulturalReviewApproved, models.CulturalReviewNeedsRevision:
	default:
		return nil, fmt.Errorf("unknown cultural review status %q", status)
	}
	if reviewer == "" {
		return nil, fmt.Errorf("reviewer is required")
	}

	workflow, err := s.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !workflow.CulturalReviewRequired {
		return nil, fmt.Errorf("%w: workflow does not require cultural review", apperrors.ErrConflict)
	}

	if err := s.workflowRepo.UpdateCulturalReview(ctx, workflowID, reviewer, status, notes); err != nil {
		return nil, err
	}

	s.logger.Info("Cultural review recorded",
		zap.String("workflow_id", workflowID.String()),
		zap.String("reviewer", reviewer),
		zap.String("status", status))

	return s.GetWorkflow(ctx, workflowID)
}

func (s *workflowService) GetCulturalValidationQueue(ctx context.Context) ([]*models.CulturalValidationItem, error) {
	return s.workflowRepo.GetCulturalValidationQueue(ctx)
}

func (s *workflowService) ProcessPendingWorkflows(ctx context.Context) (int, error) {
	active, err := s.workflowRepo.GetActive(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, workflow := range active {
		if workflow.Status != models.WorkflowStatusPending {
			continue
		}
		if err := s.translator.TranslateWorkflow(ctx, workflow); err != nil {
			s.logger.Error("Translator failed for workflow",
				zap.String("workflow_id", workflow.ID.String()), zap.Error(err))
			continue
		}
		processed++
	}

	s.logger.Info("Pending workflow sweep completed", zap.Int("processed", processed))
	return processed, nil
}
