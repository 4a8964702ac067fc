package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/GimhanaMahela/BusWatch/internal/media"
	"github.com/GimhanaMahela/BusWatch/internal/service"
	"github.com/GimhanaMahela/BusWatch/internal/store"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	Service *service.SubmissionService
	Store   store.ReportStore
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SubmitReport handles the public multipart submission endpoint.
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	input := service.SubmitInput{
		BusNumber:      strings.TrimSpace(c.PostForm("busNumber")),
		RouteNumber:    strings.TrimSpace(c.PostForm("routeNumber")),
		BusName:        strings.TrimSpace(c.PostForm("busName")),
		Location:       strings.TrimSpace(c.PostForm("location")),
		Description:    strings.TrimSpace(c.PostForm("description")),
		PassengerEmail: strings.TrimSpace(c.PostForm("passengerEmail")),
	}

	fieldErrors := gin.H{}
	for field, value := range map[string]string{
		"busNumber":   input.BusNumber,
		"routeNumber": input.RouteNumber,
		"location":    input.Location,
		"description": input.Description,
	} {
		if value == "" {
			fieldErrors[field] = field + " is required"
		}
	}
	if len(fieldErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Validation Error", "errors": fieldErrors})
		return
	}

	input.Files = evidenceFiles(c)

	result, err := h.Service.Submit(c.Request.Context(), input)
	if err != nil {
		var tooMany *media.ErrTooManyFiles
		switch {
		case errors.As(err, &tooMany):
			c.JSON(http.StatusBadRequest, gin.H{"message": "Validation Error", "errors": gin.H{"files": tooMany.Error()}})
		case errors.Is(err, service.ErrReceiptIDExhausted):
			c.JSON(http.StatusConflict, gin.H{"message": "Duplicate receipt ID detected. Please try again."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit report"})
		}
		return
	}

	response := gin.H{
		"message":          "Report submitted successfully!",
		"report":           result.Report,
		"receiptId":        result.Report.ReceiptID,
		"receiptAvailable": result.ReceiptAvailable,
	}
	if result.ReceiptURL != "" {
		response["receiptUrl"] = result.ReceiptURL
	}
	c.JSON(http.StatusCreated, response)
}

// evidenceFiles collects the image and video parts of the multipart form.
// A submission without files is valid.
func evidenceFiles(c *gin.Context) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	files := append([]*multipart.FileHeader{}, form.File["images"]...)
	return append(files, form.File["videos"]...)
}

// GetAllReports lists every report, newest first.
func (h *ReportHandler) GetAllReports(c *gin.Context) {
	reports, err := h.Store.FindAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query reports"})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetReportByID fetches a report by its internal ID.
func (h *ReportHandler) GetReportByID(c *gin.Context) {
	report, err := h.Store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReportByReceiptID fetches a report by the public receipt handle.
func (h *ReportHandler) GetReportByReceiptID(c *gin.Context) {
	report, err := h.Store.FindByReceiptID(c.Request.Context(), c.Param("receiptId"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateReportStatus moves a report through its lifecycle.
func (h *ReportHandler) UpdateReportStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.Service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update report status"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// DeleteReport removes a report and best-effort cleans up its evidence.
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	err := h.Service.DeleteReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report removed"})
}
