package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"archive-auditor/core/database"
	"archive-auditor/core/retry"
	"archive-auditor/core/storage/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *mocks.Client) {
	db, mock := setupMockDB(t)
	client := &mocks.Client{}

	policy := retry.Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Factor:     2,
		Retryable:  database.IsTransient,
	}

	svc := NewService(db, client, zap.NewNop(), Config{RetentionDays: 30}, policy)
	return svc, mock, client
}

func jobColumns() []string {
	return []string{
		"id", "archive_location", "inventory_creation_time", "status",
		"start_time", "last_update", "end_time", "error_message", "staged_count",
	}
}

func jobRow(id int64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(jobColumns()).
		AddRow(id, "arn:archive:bucket-a", now, status, now, now, nil, "", 0)
}

func TestHandleReconcileTriggerAcksAfterSuccess(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(9, "SUCCESS"))

	var acked []string
	remove := func(ctx context.Context, receiptHandle string) error {
		acked = append(acked, receiptHandle)
		return nil
	}

	err := svc.HandleReconcileTrigger(context.Background(), ReconcileTrigger{
		JobID:         9,
		ReceiptHandle: "receipt-1",
	}, remove)

	assert.NoError(t, err)
	assert.Equal(t, []string{"receipt-1"}, acked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleReconcileTriggerRetriesAck(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(9, "SUCCESS"))

	calls := 0
	remove := func(ctx context.Context, receiptHandle string) error {
		calls++
		if calls < 3 {
			return errors.New("queue unavailable")
		}
		return nil
	}

	err := svc.HandleReconcileTrigger(context.Background(), ReconcileTrigger{
		JobID:         9,
		ReceiptHandle: "receipt-1",
	}, remove)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestHandleReconcileTriggerKeepsMessageOnFailure(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnError(errors.New("boom"))

	removed := false
	remove := func(ctx context.Context, receiptHandle string) error {
		removed = true
		return nil
	}

	err := svc.HandleReconcileTrigger(context.Background(), ReconcileTrigger{
		JobID:         9,
		ReceiptHandle: "receipt-1",
	}, remove)

	assert.Error(t, err)
	assert.False(t, removed, "message must not be acknowledged when the reconcile fails")
}
