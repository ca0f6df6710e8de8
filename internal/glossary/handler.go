package glossary

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/parcelmap/listing-search/internal/core/errors"
)

// RegisterRoutes registers the glossary route on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/glossary", s.HandleGet)
}

// HandleGet handles GET /v1/glossary
func (s *Service) HandleGet(c *gin.Context) {
	g, err := s.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to load glossary",
			Details:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, g)
}
