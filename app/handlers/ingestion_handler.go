package handlers

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/listflow/listflow/app/dto"
	businessflow "github.com/listflow/listflow/business_flow"
	"github.com/listflow/listflow/utils"
)

type IngestionHandlerInterface interface {
	UploadList(c fiber.Ctx) error
}

// IngestionHandler accepts contact list uploads and runs them through
// reconciliation synchronously.
type IngestionHandler struct {
	flow      businessflow.IngestionFlow
	validator *validator.Validate
}

func NewIngestionHandler(flow businessflow.IngestionFlow, validator *validator.Validate) *IngestionHandler {
	return &IngestionHandler{flow: flow, validator: validator}
}

func (h *IngestionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *IngestionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// UploadList ingests one uploaded contact list for a tenant
// @Summary Upload a contact list
// @Description Parse an uploaded CSV or XLSX contact list and reconcile it against the tenant's identity records
// @Tags Lists
// @Accept multipart/form-data
// @Produce json
// @Param tenant_id formData int true "Tenant ID"
// @Param mode formData string false "Ingestion mode (append or match-append)"
// @Param file formData file true "Contact list file"
// @Success 200 {object} dto.APIResponse{data=dto.UploadListResponse} "List processed"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 404 {object} dto.APIResponse "Tenant not found"
// @Failure 422 {object} dto.APIResponse "Unparseable file"
// @Router /api/v1/lists/upload [post]
func (h *IngestionHandler) UploadList(c fiber.Ctx) error {
	var req dto.UploadListRequest
	if v := c.FormValue("tenant_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant id", "INVALID_TENANT_ID", nil)
		}
		req.TenantID = uint(id)
	}
	req.Mode = c.FormValue("mode")
	if req.Mode == "" {
		req.Mode = string(businessflow.IngestionModeAppend)
	}

	if err := h.validator.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			details := make(map[string]string)
			for _, fieldError := range validationErrors {
				details[fieldError.Field()] = getValidationErrorMessage(fieldError)
			}
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", details)
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "VALIDATION_ERROR", nil)
	}

	mode, err := businessflow.ParseIngestionMode(req.Mode)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid ingestion mode", "INVALID_MODE", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Missing file upload", "MISSING_FILE", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", "UNREADABLE_FILE", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "UNREADABLE_FILE", nil)
	}

	contacts, stats, err := businessflow.ParseContacts(data, fileHeader.Filename)
	if err != nil {
		switch {
		case businessflow.IsUnsupportedFormat(err):
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Unsupported file format", "UNSUPPORTED_FORMAT", nil)
		case businessflow.IsEmptyInput(err):
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "File contains no parseable rows", "EMPTY_INPUT", nil)
		case businessflow.IsUnrecognizedSchema(err):
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "No name column detected", "UNRECOGNIZED_SCHEMA", nil)
		}
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Failed to parse file", "PARSE_FAILED", nil)
	}

	result, err := h.flow.Reconcile(h.createRequestContext(c, "/api/v1/lists/upload"), contacts, req.TenantID, fileHeader.Filename, mode)
	if err != nil {
		if businessflow.IsTenantNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to process list", "RECONCILIATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "List processed", dto.UploadListResponse{
		Message:      "List processed",
		SourceFile:   fileHeader.Filename,
		Mode:         string(mode),
		Total:        result.Total,
		Created:      result.Created,
		Updated:      result.Updated,
		Skipped:      result.Skipped,
		NoIdentifier: result.NoIdentifier,
		Errors:       result.Errors,
		Stats: dto.ParseStatsResponse{
			RowsTotal:     stats.RowsTotal,
			RowsDropped:   stats.RowsDropped,
			InvalidEmails: stats.InvalidEmails,
		},
	})
}

func (h *IngestionHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 5*time.Minute)
}

func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
