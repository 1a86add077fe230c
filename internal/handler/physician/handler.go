package physician

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medcore/records-api/internal/middleware"
	"github.com/medcore/records-api/internal/model"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/physician/info", h.Info)
}

// Info returns the calling physician's display name.
func (h *Handler) Info(c *gin.Context) {
	physician := middleware.PhysicianFromContext(c)
	if physician == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	c.JSON(http.StatusOK, model.PhysicianInfo{
		FirstName: physician.FirstName,
		LastName:  physician.LastName,
	})
}
