package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listProjections returns the bookkeeping row of every projection
func (s *Server) listProjections(c *gin.Context) {
	rows, err := s.projector.ListProjections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projections": rows})
}

// startProjection resumes a projection from its watermark. Also clears a
// tripped circuit breaker.
func (s *Server) startProjection(c *gin.Context) {
	id := c.Param("id")
	if err := s.projector.StartProjection(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": id, "status": "started"})
}

// rebuildProjection truncates the read model and replays the full log
func (s *Server) rebuildProjection(c *gin.Context) {
	id := c.Param("id")
	if err := s.projector.RebuildProjection(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": id, "status": "rebuilt"})
}

// retryFailedEvents re-folds dead-lettered events across all projections
func (s *Server) retryFailedEvents(c *gin.Context) {
	if err := s.projector.RetryFailedEvents(c.Request.Context(), 100); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "retried"})
}
