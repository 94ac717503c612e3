package recon

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"archive-auditor/feature/recon/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	svc, mock, _ := newTestService(t)
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app, mock
}

func TestHandleCreateJob(t *testing.T) {
	app, mock := setupTestApp(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `recon_jobs`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	body := `{"archive_location":"arn:archive:bucket-a","inventory_creation_time":1767225600000}`
	req := httptest.NewRequest("POST", "/recon/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, float64(7), created["id"])
	assert.Equal(t, "PENDING", created["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCreateJobRejectsMissingLocation(t *testing.T) {
	app, mock := setupTestApp(t)

	body := `{"inventory_creation_time":1767225600000}`
	req := httptest.NewRequest("POST", "/recon/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleUpdateStatusIllegalTransition(t *testing.T) {
	app, mock := setupTestApp(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(jobRow(5, "PENDING"))
	mock.ExpectRollback()

	body := `{"status":"GENERATING_REPORTS"}`
	req := httptest.NewRequest("PUT", "/recon/jobs/5/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleUpdateStatusUnknownJob(t *testing.T) {
	app, mock := setupTestApp(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs` WHERE").
		WillReturnRows(sqlmock.NewRows(jobColumns()))
	mock.ExpectRollback()

	body := `{"status":"STAGED"}`
	req := httptest.NewRequest("PUT", "/recon/jobs/404/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListJobs(t *testing.T) {
	app, mock := setupTestApp(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM `recon_jobs`").
		WillReturnRows(sqlmock.NewRows(jobColumns()).
			AddRow(1, "arn:archive:bucket-a", now, "SUCCESS", now, now, now, "", 12))

	req := httptest.NewRequest("GET", "/recon/jobs", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, false, page["another_page"])
	assert.Len(t, page["jobs"], 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListPhantomsBadJobID(t *testing.T) {
	app, mock := setupTestApp(t)

	req := httptest.NewRequest("GET", "/recon/jobs/not-a-number/phantoms", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListPhantomsRejectsMalformedCursor(t *testing.T) {
	app, mock := setupTestApp(t)

	req := httptest.NewRequest("GET", "/recon/jobs/7/phantoms?cursor=not-a-cursor", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListPhantomsRejectsForeignCursor(t *testing.T) {
	app, mock := setupTestApp(t)

	// A cursor minted for job 8 cannot page job 7.
	token := models.EncodeJobCursor(models.DirectionNext, 8, 0)
	req := httptest.NewRequest("GET", "/recon/jobs/7/phantoms?cursor="+url.QueryEscape(token), nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListPhantomsCursorAdvancesPage(t *testing.T) {
	app, mock := setupTestApp(t)

	rows := sqlmock.NewRows(phantomColumns())
	for i := 0; i < PageSize+1; i++ {
		rows.AddRow(i+1, 7, "c-1", "g-1", "a.dat", fmt.Sprintf("path/%03d.dat", i), `"e1"`, 100, time.Now().UTC())
	}
	mock.ExpectQuery("SELECT (.+) FROM `phantom_reports` WHERE job_id =").
		WillReturnRows(rows)

	token := models.EncodeJobCursor(models.DirectionNext, 7, 0)
	req := httptest.NewRequest("GET", "/recon/jobs/7/phantoms?cursor="+url.QueryEscape(token), nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, float64(1), page["page_index"])
	assert.Equal(t, true, page["another_page"])
	assert.NotEmpty(t, page["next_cursor"])
	assert.NotEmpty(t, page["previous_cursor"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleListOrphans(t *testing.T) {
	app, mock := setupTestApp(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM `orphan_reports` WHERE job_id =").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_id", "key_path", "etag", "size_in_bytes", "storage_class", "last_update"}).
			AddRow(1, 7, "path/extra.dat", `"e2"`, 200, "STANDARD", now))

	req := httptest.NewRequest("GET", "/recon/jobs/7/orphans", nil)
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page["orphans"], 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
