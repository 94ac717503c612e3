package recon

import (
	"context"

	"archive-auditor/core/retry"
	"archive-auditor/core/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the reconciliation operations: job lifecycle, inventory
// import, diff generation, report readers, and the retention sweeper.
// Every database round trip goes through the retry policy.
type Service struct {
	db       *gorm.DB
	client   storage.Client
	logger   *zap.Logger
	cfg      Config
	policy   retry.Policy
	importer BulkImporter
}

// NewService creates a new reconciliation service.
func NewService(db *gorm.DB, client storage.Client, logger *zap.Logger, cfg Config, policy retry.Policy) *Service {
	s := &Service{
		db:     db,
		client: client,
		logger: logger,
		cfg:    cfg,
		policy: policy,
	}
	s.importer = &csvBulkImporter{db: db, client: client, logger: logger}
	return s
}

// withRetry wraps a store operation with the service's retry policy.
func (s *Service) withRetry(ctx context.Context, name string, op func() error) error {
	return retry.Do(ctx, s.logger, s.policy, name, op)
}

// MessageRemover acknowledges a queue message by its receipt handle. The
// queue client itself lives outside this service; callers inject the
// capability alongside the trigger payload.
type MessageRemover func(ctx context.Context, receiptHandle string) error

// ReconcileTrigger is the payload of a queue-delivered reconcile request.
type ReconcileTrigger struct {
	JobID         int64
	ReceiptHandle string
}

// HandleReconcileTrigger performs the reconcile for a queue-delivered job
// and acknowledges the message only after SUCCESS is durably recorded.
// The acknowledgement itself is retried; at-least-once delivery plus the
// idempotent reconcile gives eventual convergence if the ack is lost.
func (s *Service) HandleReconcileTrigger(ctx context.Context, trigger ReconcileTrigger, remove MessageRemover) error {
	if err := s.PerformReconcile(ctx, trigger.JobID); err != nil {
		return err
	}

	return retry.Do(ctx, s.logger, retry.Policy{
		MaxRetries: 3,
		BaseDelay:  s.policy.BaseDelay,
		Factor:     s.policy.Factor,
		MaxJitter:  s.policy.MaxJitter,
		Retryable:  func(error) bool { return true },
	}, "remove queue message", func() error {
		return remove(ctx, trigger.ReceiptHandle)
	})
}
