// Package api exposes the statement import pipeline over HTTP.
package api

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/finstream/bankfeed/internal/jobs"
	"github.com/finstream/bankfeed/internal/parser"
	"github.com/finstream/bankfeed/internal/pipeline"
)

// maxUploadSize bounds one statement upload.
const maxUploadSize = 32 << 20

// Handler holds the HTTP handlers for the API. When a publisher is
// configured, uploads are imported asynchronously and the response carries a
// job ID to poll; without one the import runs inline and the response
// carries the final stats.
type Handler struct {
	importer  *pipeline.Importer
	publisher jobs.Publisher
	jobStore  jobs.JobStore
	log       zerolog.Logger
}

// NewHandler creates a new API handler. publisher may be nil for synchronous
// operation.
func NewHandler(importer *pipeline.Importer, publisher jobs.Publisher, jobStore jobs.JobStore, log zerolog.Logger) *Handler {
	return &Handler{
		importer:  importer,
		publisher: publisher,
		jobStore:  jobStore,
		log:       log,
	}
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Post("/api/imports", h.handleCreateImport)
	app.Get("/api/imports", h.handleListImports)
	app.Get("/api/imports/:id", h.handleGetImport)
	app.Get("/api/health", h.handleHealth)
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleCreateImport handles POST /api/imports. The statement file arrives
// as the multipart field "file"; the target account as the optional form
// value "account_id".
func (h *Handler) handleCreateImport(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	if fileHeader.Size > maxUploadSize {
		return writeError(c, fiber.StatusRequestEntityTooLarge, "File exceeds the upload limit.")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "Could not read the uploaded file.")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "Could not read the uploaded file.")
	}

	accountID := c.FormValue("account_id")
	contentType := fileHeader.Header.Get("Content-Type")

	if h.publisher == nil {
		stats, err := h.importer.ImportFile(c.Context(), pipeline.File{
			Name:        fileHeader.Filename,
			ContentType: contentType,
			Data:        data,
		}, accountID)
		if err != nil {
			return writeImportError(c, h.log, fileHeader.Filename, err)
		}
		return c.JSON(fiber.Map{"status": string(jobs.JobStatusCompleted), "stats": stats})
	}

	job := &jobs.ImportStatementJob{
		AccountID:   accountID,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}
	if err := h.publisher.PublishImportStatement(c.Context(), job); err != nil {
		h.log.Error().Err(err).Str("file", fileHeader.Filename).Msg("Failed to enqueue import")
		return writeError(c, fiber.StatusServiceUnavailable, "Import queue unavailable.")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// handleGetImport handles GET /api/imports/:id.
func (h *Handler) handleGetImport(c *fiber.Ctx) error {
	if h.jobStore == nil {
		return writeError(c, fiber.StatusNotFound, "Import tracking is not enabled.")
	}

	job, err := h.jobStore.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, fiber.StatusNotFound, "Import not found.")
	}
	return c.JSON(job)
}

// handleListImports handles GET /api/imports with optional account_id,
// status, and limit query filters.
func (h *Handler) handleListImports(c *fiber.Ctx) error {
	if h.jobStore == nil {
		return c.JSON(fiber.Map{"imports": []*jobs.ImportStatementJob{}, "count": 0})
	}

	filter := jobs.JobFilter{
		AccountID: c.Query("account_id"),
		Status:    jobs.JobStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "Invalid limit.")
		}
		filter.Limit = limit
	}

	imports, err := h.jobStore.ListJobs(c.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list imports")
		return writeError(c, fiber.StatusInternalServerError, "Failed to list imports.")
	}
	return c.JSON(fiber.Map{"imports": imports, "count": len(imports)})
}

func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// writeImportError maps pipeline failures onto HTTP statuses: client
// problems (unrecognized formats, undateable rows, missing extraction
// credentials) are 4xx, everything else is a 500.
func writeImportError(c *fiber.Ctx, log zerolog.Logger, filename string, err error) error {
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return writeError(c, fiber.StatusUnsupportedMediaType, "Unsupported statement format.")
	case errors.Is(err, pipeline.ErrInvalidDate):
		return writeError(c, fiber.StatusUnprocessableEntity, "Statement contains rows without a usable date.")
	case errors.Is(err, parser.ErrMissingCredential):
		return writeError(c, fiber.StatusBadGateway, "Image extraction is not configured.")
	default:
		log.Error().Err(err).Str("file", filename).Msg("Import failed")
		return writeError(c, fiber.StatusInternalServerError, "Import failed.")
	}
}
