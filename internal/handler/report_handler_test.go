package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportdesk/report-desk-api/internal/dto"
	"github.com/reportdesk/report-desk-api/internal/middleware"
	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/internal/service"
	appErrors "github.com/reportdesk/report-desk-api/pkg/errors"
)

type workflowMock struct {
	createResp   *dto.CreateReportResponse
	createErr    error
	createdExtra models.ReportContent
	listResp     []dto.ReportResponse
	listErr      error
	assignResp   *dto.AssignmentResponse
	assignErr    error
	reviewResp   *dto.ReviewResponse
	reviewErr    error
	pdfLinkResp  *dto.PDFLinkResponse
	pdfLinkErr   error
	downloadBody string
	downloadErr  error
	lastActor    service.Actor
}

func (m *workflowMock) Create(ctx context.Context, req *dto.CreateReportRequest, pdfName string, pdfBytes []byte, extraContent models.ReportContent) (*dto.CreateReportResponse, error) {
	m.createdExtra = extraContent
	return m.createResp, m.createErr
}

func (m *workflowMock) ListAll(ctx context.Context) ([]dto.ReportResponse, error) {
	return m.listResp, m.listErr
}

func (m *workflowMock) ListAvailable(ctx context.Context) ([]dto.ReportResponse, error) {
	return m.listResp, m.listErr
}

func (m *workflowMock) ListAssignedTo(ctx context.Context, actorID string) ([]dto.ReportResponse, error) {
	return m.listResp, m.listErr
}

func (m *workflowMock) ListCompletedBy(ctx context.Context, actorID string) ([]dto.ReportResponse, error) {
	return m.listResp, m.listErr
}

func (m *workflowMock) Assign(ctx context.Context, reportID string, actor service.Actor) (*dto.AssignmentResponse, error) {
	m.lastActor = actor
	return m.assignResp, m.assignErr
}

func (m *workflowMock) Unassign(ctx context.Context, reportID string, actor service.Actor) (*dto.AssignmentResponse, error) {
	m.lastActor = actor
	return m.assignResp, m.assignErr
}

func (m *workflowMock) Review(ctx context.Context, reportID string, actor service.Actor, req *dto.ReviewRequest) (*dto.ReviewResponse, error) {
	m.lastActor = actor
	return m.reviewResp, m.reviewErr
}

func (m *workflowMock) PDFLink(ctx context.Context, reportID string) (*dto.PDFLinkResponse, error) {
	return m.pdfLinkResp, m.pdfLinkErr
}

func (m *workflowMock) OpenAttachment(ctx context.Context, token string) (io.ReadCloser, string, error) {
	if m.downloadErr != nil {
		return nil, "", m.downloadErr
	}
	return io.NopCloser(strings.NewReader(m.downloadBody)), "report-rep-1.pdf", nil
}

type exporterMock struct {
	result *service.ExportResult
	err    error
}

func (m *exporterMock) Export(ctx context.Context, format service.ExportFormat) (*service.ExportResult, error) {
	return m.result, m.err
}

func newGinContext(method, path string, body []byte, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.Request = req
	return c, w
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileBytes []byte) ([]byte, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write(fileBytes)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes(), writer.FormDataContentType()
}

func TestReportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowMock{createResp: &dto.CreateReportResponse{ReportID: "rep-1", PDFPath: "inst-7/x.pdf"}}
	h := NewReportHandler(mock, nil, UploadLimits{})

	body, contentType := multipartBody(t, map[string]string{
		"reporter_name":  "Jan Kowalski",
		"reporter_email": "jan@example.com",
	}, "pdf_file", "complaint.pdf", []byte("%PDF-1.4"))
	c, w := newGinContext(http.MethodPost, "/reports", body, contentType)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "rep-1")
}

func TestReportHandlerCreateMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&workflowMock{}, nil, UploadLimits{})

	body, contentType := multipartBody(t, map[string]string{
		"reporter_name":  "Jan Kowalski",
		"reporter_email": "jan@example.com",
	}, "", "", nil)
	c, w := newGinContext(http.MethodPost, "/reports", body, contentType)

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerCreateEnforcesSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&workflowMock{}, nil, UploadLimits{MaxBytes: 4})

	body, contentType := multipartBody(t, map[string]string{
		"reporter_name":  "Jan Kowalski",
		"reporter_email": "jan@example.com",
	}, "pdf_file", "complaint.pdf", []byte("way too large"))
	c, w := newGinContext(http.MethodPost, "/reports", body, contentType)

	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerCreateStampsSubmitter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowMock{createResp: &dto.CreateReportResponse{ReportID: "rep-1"}}
	h := NewReportHandler(mock, nil, UploadLimits{})

	body, contentType := multipartBody(t, map[string]string{
		"reporter_name":  "Jan Kowalski",
		"reporter_email": "jan@example.com",
		"content":        `{"category":"safety"}`,
	}, "pdf_file", "complaint.pdf", []byte("%PDF-1.4"))
	c, w := newGinContext(http.MethodPost, "/reports", body, contentType)
	c.Set(middleware.ContextUserIDKey, "user-9")

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-9", mock.createdExtra[models.ContentKeySubmittedByID])
	assert.Equal(t, "safety", mock.createdExtra["category"])
}

func TestReportHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowMock{listResp: []dto.ReportResponse{{ID: "rep-1", Status: "pending"}}}
	h := NewReportHandler(mock, nil, UploadLimits{})

	c, w := newGinContext(http.MethodGet, "/reports", nil, "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pending")
}

func TestReportHandlerAssignConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowMock{assignErr: appErrors.Clone(appErrors.ErrConflict, "report assigned to another moderator")}
	h := NewReportHandler(mock, nil, UploadLimits{})

	c, w := newGinContext(http.MethodPost, "/reports/rep-1/assign", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserIDKey, "mod-1")

	h.Assign(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "another moderator")
}

func TestReportHandlerReview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowMock{reviewResp: &dto.ReviewResponse{Message: "report review completed", ReportID: "rep-1", Status: "completed"}}
	h := NewReportHandler(mock, nil, UploadLimits{})

	payload, _ := json.Marshal(dto.ReviewRequest{ComparisonNotes: "checked"})
	c, w := newGinContext(http.MethodPost, "/reports/rep-1/review", payload, "application/json")
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserIDKey, "mod-1")

	h.Review(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "completed")
}

func TestReportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &workflowMock{downloadBody: "%PDF-1.4 data"}
	h := NewReportHandler(mock, nil, UploadLimits{})

	c, w := newGinContext(http.MethodGet, "/files/download?token=abc", nil, "")
	c.Request.URL.RawQuery = "token=abc"

	h.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 data", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report-rep-1.pdf")
}

func TestReportHandlerDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&workflowMock{}, nil, UploadLimits{})

	c, w := newGinContext(http.MethodGet, "/files/download", nil, "")
	h.Download(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{result: &service.ExportResult{
		Data:        []byte("ID,Reporter\n"),
		ContentType: "text/csv",
		Filename:    "reports.csv",
	}}
	h := NewReportHandler(&workflowMock{}, exporter, UploadLimits{})

	c, w := newGinContext(http.MethodGet, "/reports/export?format=csv", nil, "")
	c.Request.URL.RawQuery = "format=csv"

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestReportHandlerExportDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewReportHandler(&workflowMock{}, nil, UploadLimits{})

	c, w := newGinContext(http.MethodGet, "/reports/export", nil, "")
	h.Export(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
