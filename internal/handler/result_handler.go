package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aayushstha1/school-mgmt-api/internal/middleware"
	"github.com/Aayushstha1/school-mgmt-api/internal/models"
	"github.com/Aayushstha1/school-mgmt-api/internal/service"
	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
	"github.com/Aayushstha1/school-mgmt-api/pkg/export"
	"github.com/Aayushstha1/school-mgmt-api/pkg/response"
)

// ResultHandler exposes result entry, workflow and export endpoints.
type ResultHandler struct {
	service        *service.ResultService
	csv            *export.CSVExporter
	pdf            *export.PDFExporter
	exportsEnabled bool
}

// NewResultHandler constructs a result handler.
func NewResultHandler(svc *service.ResultService, exportsEnabled bool) *ResultHandler {
	return &ResultHandler{
		service:        svc,
		csv:            export.NewCSVExporter(),
		pdf:            export.NewPDFExporter(),
		exportsEnabled: exportsEnabled,
	}
}

// Create godoc
// @Summary Create draft result
// @Description Record a student's marks for an exam; the grade is derived automatically
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.CreateResultRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /results [post]
func (h *ResultHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.CreateDraft(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update draft result
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body service.UpdateResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [put]
func (h *ResultHandler) Update(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.UpdateDraft(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List results
// @Description Results visible to the caller's role
// @Tags Results
// @Produce json
// @Param exam_id query string false "Filter by exam"
// @Param student_id query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param class query string false "Filter by class"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ResultFilter{
		ExamID:    c.Query("exam_id"),
		StudentID: c.Query("student_id"),
		Status:    models.ResultStatus(c.Query("status")),
		Class:     c.Query("class"),
	}
	results, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// Get godoc
// @Summary Get result
// @Tags Results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{id} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Publish draft results
// @Description Move all of the caller's drafts for an exam into pending approval
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.PublishResultsRequest true "Publish payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.PublishResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.service.Publish(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Review godoc
// @Summary Approve or reject pending results
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.ReviewResultsRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/approve [post]
func (h *ResultHandler) Review(c *gin.Context) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ReviewResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.service.Review(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Export godoc
// @Summary Export approved results
// @Description Download an exam's approved results as a CSV or PDF marksheet
// @Tags Results
// @Produce octet-stream
// @Param exam_id query string true "Exam ID"
// @Param class query string false "Class scope"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	if !h.exportsEnabled {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req := service.ExportRequest{
		ExamID: c.Query("exam_id"),
		Class:  c.Query("class"),
		Format: service.ExportFormat(c.Query("format")),
	}
	file, err := h.service.Export(c.Request.Context(), claims, req, h.csv, h.pdf)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
