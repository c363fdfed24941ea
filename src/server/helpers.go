package server

import (
	"errors"
	"net/http"
	"strconv"

	"product-filter/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// writeError maps pipeline errors to HTTP statuses.
func (s *APIServer) writeError(c *gin.Context, operation string, err error) {
	if helpers.IsClientError(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusInternalServerError
	var ce *helpers.ClassifierError
	var se *helpers.SourceError
	if errors.As(err, &ce) || errors.As(err, &se) {
		status = http.StatusBadGateway
	}
	s.Logger.Error("%s failed: %v", operation, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// -----------------------------------------------------------------------------

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}

// -----------------------------------------------------------------------------

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

// -----------------------------------------------------------------------------

func (s *APIServer) knownCategory(category string) bool {
	if s.services.Categories == nil {
		return category != ""
	}
	return contains(s.services.Categories(), category)
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
