package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"archive-auditor/feature/recon/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestCreateJob(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `recon_jobs`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	job, err := svc.CreateJob(context.Background(), "arn:archive:bucket-a", time.Now().UTC())

	assert.NoError(t, err)
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJobValidation(t *testing.T) {
	svc, mock, _ := newTestService(t)

	_, err := svc.CreateJob(context.Background(), "", time.Now().UTC())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateJob(context.Background(), "arn:archive:bucket-a", time.Time{})
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJobRetriesTransientFailure(t *testing.T) {
	svc, mock, _ := newTestService(t)

	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `recon_jobs`").WillReturnError(deadlock)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `recon_jobs`").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	job, err := svc.CreateJob(context.Background(), "arn:archive:bucket-a", time.Now().UTC())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), job.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobNotFound(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(sqlmock.NewRows(jobColumns()))

	_, err := svc.GetJob(context.Background(), 404)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatusLegalTransition(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "PENDING"))
	mock.ExpectExec("UPDATE `recon_jobs` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.UpdateJobStatus(context.Background(), 5, models.JobStatusStaged, "")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatusRejectsSkippedState(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "PENDING"))
	mock.ExpectRollback()

	err := svc.UpdateJobStatus(context.Background(), 5, models.JobStatusGeneratingReports, "")

	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatusRejectsLeavingTerminal(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "ERROR"))
	mock.ExpectRollback()

	err := svc.UpdateJobStatus(context.Background(), 5, models.JobStatusPending, "")

	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatusTerminalIdempotent(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "SUCCESS"))
	mock.ExpectCommit()

	err := svc.UpdateJobStatus(context.Background(), 5, models.JobStatusSuccess, "")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformReconcileAlreadySucceeded(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "SUCCESS"))

	err := svc.PerformReconcile(context.Background(), 5)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPerformReconcileRecordsErrorBeforeReturning(t *testing.T) {
	svc, mock, _ := newTestService(t)

	boom := errors.New("catalog unavailable")

	// Load the staged job.
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "STAGED"))

	// Transition to GENERATING_REPORTS.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "STAGED"))
	mock.ExpectExec("UPDATE `recon_jobs` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Report generation fails and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `catalog_files` WHERE").WillReturnError(boom)
	mock.ExpectRollback()

	// The failure is recorded on the job before the error is returned.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "GENERATING_REPORTS"))
	mock.ExpectExec("UPDATE `recon_jobs` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.PerformReconcile(context.Background(), 5)

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
