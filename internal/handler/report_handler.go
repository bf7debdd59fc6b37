package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reportdesk/report-desk-api/internal/dto"
	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/internal/service"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
	"github.com/reportdesk/report-desk-api/pkg/response"
)

const attachmentFormField = "pdf_file"

type reportWorkflow interface {
	Create(ctx context.Context, req *dto.CreateReportRequest, pdfName string, pdfBytes []byte, extraContent models.ReportContent) (*dto.CreateReportResponse, error)
	ListAll(ctx context.Context) ([]dto.ReportResponse, error)
	ListAvailable(ctx context.Context) ([]dto.ReportResponse, error)
	ListAssignedTo(ctx context.Context, actorID string) ([]dto.ReportResponse, error)
	ListCompletedBy(ctx context.Context, actorID string) ([]dto.ReportResponse, error)
	Assign(ctx context.Context, reportID string, actor service.Actor) (*dto.AssignmentResponse, error)
	Unassign(ctx context.Context, reportID string, actor service.Actor) (*dto.AssignmentResponse, error)
	Review(ctx context.Context, reportID string, actor service.Actor, req *dto.ReviewRequest) (*dto.ReviewResponse, error)
	PDFLink(ctx context.Context, reportID string) (*dto.PDFLinkResponse, error)
	OpenAttachment(ctx context.Context, token string) (io.ReadCloser, string, error)
}

type reportExporter interface {
	Export(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error)
}

// UploadLimits bounds the intake attachment.
type UploadLimits struct {
	MaxBytes     int64
	AllowedMIMEs []string
}

// ReportHandler exposes the report lifecycle endpoints.
type ReportHandler struct {
	workflow reportWorkflow
	exporter reportExporter
	limits   UploadLimits
}

// NewReportHandler constructs the handler.
func NewReportHandler(workflow reportWorkflow, exporter reportExporter, limits UploadLimits) *ReportHandler {
	return &ReportHandler{workflow: workflow, exporter: exporter, limits: limits}
}

// Create godoc
// @Summary Submit a report with its PDF attachment
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param pdf_file formData file true "Report document"
// @Param reporter_name formData string true "Reporter name"
// @Param reporter_email formData string true "Reporter email"
// @Success 201 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid form payload"))
		return
	}

	fileHeader, err := c.FormFile(attachmentFormField)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pdf_file is required"))
		return
	}
	if h.limits.MaxBytes > 0 && fileHeader.Size > h.limits.MaxBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("attachment exceeds the %d byte limit", h.limits.MaxBytes)))
		return
	}
	if !h.mimeAllowed(fileHeader.Header.Get("Content-Type")) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "attachment must be a pdf"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read attachment"))
		return
	}
	defer file.Close() //nolint:errcheck
	pdfBytes, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read attachment"))
		return
	}

	extra, err := h.extraContent(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.workflow.Create(c.Request.Context(), &req, fileHeader.Filename, pdfBytes, extra)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// extraContent collects the optional free-form JSON document and stamps
// the submitter id when the request carried a valid identity.
func (h *ReportHandler) extraContent(c *gin.Context) (models.ReportContent, error) {
	extra := models.ReportContent{}
	if raw := c.PostForm("content"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "content must be a json object")
		}
	}
	if userID := userIDFromContext(c); userID != "" {
		extra[models.ContentKeySubmittedByID] = userID
	}
	return extra, nil
}

func (h *ReportHandler) mimeAllowed(contentType string) bool {
	if len(h.limits.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range h.limits.AllowedMIMEs {
		if strings.EqualFold(strings.TrimSpace(contentType), allowed) {
			return true
		}
	}
	return false
}

// List godoc
// @Summary List every report with derived status
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.workflow.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// ListAvailable godoc
// @Summary List unclaimed pending reports
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/available [get]
func (h *ReportHandler) ListAvailable(c *gin.Context) {
	reports, err := h.workflow.ListAvailable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// ListAssigned godoc
// @Summary List the caller's active workload
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/assigned [get]
func (h *ReportHandler) ListAssigned(c *gin.Context) {
	reports, err := h.workflow.ListAssignedTo(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// ListCompleted godoc
// @Summary List reports completed by the caller
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /reports/completed [get]
func (h *ReportHandler) ListCompleted(c *gin.Context) {
	reports, err := h.workflow.ListCompletedBy(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Assign godoc
// @Summary Claim a report for the caller
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/assign [post]
func (h *ReportHandler) Assign(c *gin.Context) {
	result, err := h.workflow.Assign(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Unassign godoc
// @Summary Release the caller's claim on a report
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/unassign [post]
func (h *ReportHandler) Unassign(c *gin.Context) {
	result, err := h.workflow.Unassign(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Review godoc
// @Summary Complete the review of an owned report
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Param payload body dto.ReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/review [post]
func (h *ReportHandler) Review(c *gin.Context) {
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload"))
		return
	}
	result, err := h.workflow.Review(c.Request.Context(), c.Param("id"), actorFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// PDFLink godoc
// @Summary Issue a signed download link for the report attachment
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/pdf-url [get]
func (h *ReportHandler) PDFLink(c *gin.Context) {
	result, err := h.workflow.PDFLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Stream an attachment referenced by a signed token
// @Tags Files
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /files/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	reader, filename, err := h.workflow.OpenAttachment(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer reader.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

// Export godoc
// @Summary Export the report roster as CSV or PDF
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
