package recon

import (
	"errors"
	"strconv"
	"time"

	"archive-auditor/core/logger"
	"archive-auditor/feature/recon/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for reconciliation operations.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the reconciliation routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/recon")
	group.Post("/jobs", h.HandleCreateJob)
	group.Get("/jobs", h.HandleListJobs)
	group.Put("/jobs/:id/status", h.HandleUpdateStatus)
	group.Post("/jobs/:id/import", h.HandleImportInventory)
	group.Post("/jobs/:id/reconcile", h.HandlePerformReconcile)
	group.Get("/jobs/:id/phantoms", h.HandleListPhantoms)
	group.Get("/jobs/:id/orphans", h.HandleListOrphans)
	group.Get("/jobs/:id/mismatches", h.HandleListMismatches)
}

type createJobRequest struct {
	ArchiveLocation       string `json:"archive_location"`
	InventoryCreationTime int64  `json:"inventory_creation_time"`
}

// HandleCreateJob creates a new reconciliation job at PENDING.
func (h *Handler) HandleCreateJob(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return clientError(c, "invalid request body")
	}

	job, err := h.service.CreateJob(c.Context(), req.ArchiveLocation, time.UnixMilli(req.InventoryCreationTime).UTC())
	if err != nil {
		return h.renderError(c, l, "Create job failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(job)
}

type updateStatusRequest struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// HandleUpdateStatus applies a job status transition.
func (h *Handler) HandleUpdateStatus(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobID, err := jobIDParam(c)
	if err != nil {
		return clientError(c, "invalid job id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return clientError(c, "invalid request body")
	}

	if err := h.service.UpdateJobStatus(c.Context(), jobID, models.JobStatus(req.Status), req.ErrorMessage); err != nil {
		return h.renderError(c, l, "Update job status failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleImportInventory stages a provider inventory snapshot for a job.
func (h *Handler) HandleImportInventory(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobID, err := jobIDParam(c)
	if err != nil {
		return clientError(c, "invalid job id")
	}

	var manifest Manifest
	if err := c.BodyParser(&manifest); err != nil {
		return clientError(c, "invalid manifest body")
	}

	staged, err := h.service.ImportInventory(c.Context(), jobID, manifest)
	if err != nil {
		return h.renderError(c, l, "Inventory import failed", err)
	}
	return c.JSON(fiber.Map{"job_id": jobID, "staged_rows": staged})
}

// HandlePerformReconcile runs the diff engine for a staged job.
func (h *Handler) HandlePerformReconcile(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobID, err := jobIDParam(c)
	if err != nil {
		return clientError(c, "invalid job id")
	}

	if err := h.service.PerformReconcile(c.Context(), jobID); err != nil {
		return h.renderError(c, l, "Reconcile failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListJobs returns one page of jobs.
func (h *Handler) HandleListJobs(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	filters := JobFilters{ArchiveLocation: c.Query("archive_location")}
	if v := c.Query("created_after"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return clientError(c, "invalid created_after")
		}
		ts := time.UnixMilli(ms).UTC()
		filters.CreatedAfter = &ts
	}
	if v := c.Query("created_before"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return clientError(c, "invalid created_before")
		}
		ts := time.UnixMilli(ms).UTC()
		filters.CreatedBefore = &ts
	}

	pageIndex, err := pageIndexFromRequest(c, 0)
	if err != nil {
		return h.renderError(c, l, "List jobs failed", err)
	}

	page, err := h.service.ListJobs(c.Context(), pageIndex, filters)
	if err != nil {
		return h.renderError(c, l, "List jobs failed", err)
	}
	page.NextCursor, page.PreviousCursor = pageCursors(0, page.PageIndex, page.AnotherPage)
	return c.JSON(page)
}

// HandleListPhantoms returns one page of a job's phantom reports.
func (h *Handler) HandleListPhantoms(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobID, err := jobIDParam(c)
	if err != nil {
		return clientError(c, "invalid job id")
	}

	pageIndex, err := pageIndexFromRequest(c, jobID)
	if err != nil {
		return h.renderError(c, l, "List phantoms failed", err)
	}

	page, err := h.service.ListPhantoms(c.Context(), jobID, pageIndex, c.Query("key_prefix"))
	if err != nil {
		return h.renderError(c, l, "List phantoms failed", err)
	}
	page.NextCursor, page.PreviousCursor = pageCursors(jobID, page.PageIndex, page.AnotherPage)
	return c.JSON(page)
}

// HandleListOrphans returns one page of a job's orphan reports.
func (h *Handler) HandleListOrphans(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobID, err := jobIDParam(c)
	if err != nil {
		return clientError(c, "invalid job id")
	}

	pageIndex, err := pageIndexFromRequest(c, jobID)
	if err != nil {
		return h.renderError(c, l, "List orphans failed", err)
	}

	page, err := h.service.ListOrphans(c.Context(), jobID, pageIndex, c.Query("key_prefix"))
	if err != nil {
		return h.renderError(c, l, "List orphans failed", err)
	}
	page.NextCursor, page.PreviousCursor = pageCursors(jobID, page.PageIndex, page.AnotherPage)
	return c.JSON(page)
}

// HandleListMismatches returns one page of a job's mismatch reports.
func (h *Handler) HandleListMismatches(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	jobID, err := jobIDParam(c)
	if err != nil {
		return clientError(c, "invalid job id")
	}

	pageIndex, err := pageIndexFromRequest(c, jobID)
	if err != nil {
		return h.renderError(c, l, "List mismatches failed", err)
	}

	page, err := h.service.ListMismatches(c.Context(), jobID, pageIndex, c.Query("key_prefix"))
	if err != nil {
		return h.renderError(c, l, "List mismatches failed", err)
	}
	page.NextCursor, page.PreviousCursor = pageCursors(jobID, page.PageIndex, page.AnotherPage)
	return c.JSON(page)
}

func jobIDParam(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// pageIndexFromRequest resolves the requested page from either an opaque
// cursor token or a plain page number. A cursor bound to a different job
// is rejected the same way as a malformed one.
func pageIndexFromRequest(c *fiber.Ctx, jobID int64) (int, error) {
	token := c.Query("cursor")
	if token == "" {
		return c.QueryInt("page", 0), nil
	}

	direction, cursorJob, index, err := models.DecodeJobCursor(token)
	if err != nil {
		return 0, err
	}
	if cursorJob != jobID {
		return 0, models.ErrBadCursor
	}
	if direction == models.DirectionPrevious {
		if index == 0 {
			return 0, models.ErrBadCursor
		}
		return index - 1, nil
	}
	return index + 1, nil
}

// pageCursors builds the opaque tokens for walking forward and backward
// from the returned page.
func pageCursors(jobID int64, pageIndex int, anotherPage bool) (next, previous string) {
	if anotherPage {
		next = models.EncodeJobCursor(models.DirectionNext, jobID, pageIndex)
	}
	if pageIndex > 0 {
		previous = models.EncodeJobCursor(models.DirectionPrevious, jobID, pageIndex)
	}
	return next, previous
}

func clientError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// renderError maps service errors onto HTTP statuses.
func (h *Handler) renderError(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrValidation), errors.Is(err, models.ErrBadCursor):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		l.Error(msg, zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
