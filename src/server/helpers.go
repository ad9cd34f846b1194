package server

import (
	"errors"
	"net/http"

	"watchlist-trader/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Error mapping
// -----------------------------------------------------------------------------

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is logged and surfaced as an opaque server error.
func (s *APIServer) writeError(c *gin.Context, err error) {
	var (
		validationErr   *helpers.ValidationError
		notFoundErr     *helpers.NotFoundError
		computationErr  *helpers.ComputationError
		connectivityErr *helpers.ConnectivityError
		timeoutErr      *helpers.TimeoutError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &computationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": computationErr.Error()})
	case errors.As(err, &connectivityErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": connectivityErr.Error()})
	case errors.As(err, &timeoutErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": timeoutErr.Error()})
	default:
		s.Logger.Error("Unexpected error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
