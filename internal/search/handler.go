package search

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/parcelmap/listing-search/internal/core/errors"
)

// RegisterRoutes registers the listing search API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/listings/search", s.HandleSearch)
	r.POST("/v1/listings/facets", s.HandleFacets)
	r.GET("/v1/listings/autocomplete", s.HandleAutocomplete)
}

// HandleSearch handles POST /v1/listings/search
func (s *Service) HandleSearch(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid search request body",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Search(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to search listings")
		return
	}

	if req.CountOnly {
		c.JSON(http.StatusOK, CountResponse{Total: resp.Total, TotalIsExact: resp.TotalIsExact})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleFacets handles POST /v1/listings/facets
func (s *Service) HandleFacets(c *gin.Context) {
	var req FacetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidJsonError,
			Message:   "Invalid facet request body",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Facets(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to count facets")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleAutocomplete handles GET /v1/listings/autocomplete
// Query parameters: q, limit, fresh
func (s *Service) HandleAutocomplete(c *gin.Context) {
	var query struct {
		Q     string `form:"q" binding:"required"`
		Limit int    `form:"limit"`
		Fresh bool   `form:"fresh"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.Autocomplete(c.Request.Context(), query.Q, query.Limit, query.Fresh)
	if err != nil {
		writeError(c, err, "Failed to suggest streets")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// writeError maps service errors to status codes.
func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid search query",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpStorageUnavailableError,
			Message:   "Listing storage is unavailable",
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}
