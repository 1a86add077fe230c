package patient

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medcore/records-api/internal/handler"
	"github.com/medcore/records-api/internal/middleware"
	"github.com/medcore/records-api/internal/model"
	"github.com/medcore/records-api/internal/service/patient"
	apperrors "github.com/medcore/records-api/pkg/errors"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)
		patients.GET("/:id", h.GetPatient)
		patients.PATCH("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
		patients.POST("/:id/send-info", h.SendPatientInfo)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindingError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), middleware.PhysicianFromContext(c), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.List(c.Request.Context(), middleware.PhysicianFromContext(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), middleware.PhysicianFromContext(c), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindingError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), middleware.PhysicianFromContext(c), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.PhysicianFromContext(c), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SendPatientInfo enqueues an email with the record's details to the
// patient. The send itself happens asynchronously in the worker.
func (h *Handler) SendPatientInfo(c *gin.Context) {
	id, ok := h.patientID(c)
	if !ok {
		return
	}

	if err := h.service.SendInfo(c.Request.Context(), middleware.PhysicianFromContext(c), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) patientID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		handler.RespondError(c, apperrors.NotFound("patient", err))
		return 0, false
	}
	return id, true
}
