package recon

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestSweepExpiredNothingToDelete(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT `id` FROM `recon_jobs` WHERE last_update <").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.SweepExpired(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpiredDeletesChildrenBeforeJobs(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT `id` FROM `recon_jobs` WHERE last_update <").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	// Report tables go first; the mock is ordered, so a jobs delete ahead
	// of any report delete fails the test.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `mismatch_reports` WHERE job_id IN").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `orphan_reports` WHERE job_id IN").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `phantom_reports` WHERE job_id IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Leftover staging relations are dropped per expired job.
	mock.ExpectExec("DROP TABLE IF EXISTS `recon_staging_1`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE IF EXISTS `recon_staging_2`").
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `recon_jobs` WHERE last_update <").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := svc.SweepExpired(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpiredContinuesPastStagingDropFailure(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT `id` FROM `recon_jobs` WHERE last_update <").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `mismatch_reports` WHERE job_id IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `orphan_reports` WHERE job_id IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `phantom_reports` WHERE job_id IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// A failed staging drop is logged, not fatal.
	mock.ExpectExec("DROP TABLE IF EXISTS `recon_staging_9`").
		WillReturnError(assert.AnError)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `recon_jobs` WHERE last_update <").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.SweepExpired(context.Background())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
