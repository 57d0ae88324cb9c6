package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/hospital/services/emr/domain"
)

// CommandRequest is the write-side request body
type CommandRequest struct {
	CommandType   string            `json:"command_type" binding:"required"`
	Data          json.RawMessage   `json:"data" binding:"required"`
	CorrelationID string            `json:"correlation_id"`
	Priority      string            `json:"priority"`
	Metadata      map[string]string `json:"metadata"`
	Async         bool              `json:"async"`
}

// dispatchCommand accepts a command, synchronously by default. With
// async=true the command is queued and the response carries only its ID.
func (s *Server) dispatchCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd, err := domain.NewCommand(domain.CommandType(req.CommandType), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	cmd.Data = req.Data
	cmd.UserID = c.GetString("user_id")
	cmd.CorrelationID = req.CorrelationID
	cmd.Metadata = req.Metadata
	if req.Priority != "" {
		cmd.Priority = domain.CommandPriority(req.Priority)
	}

	if req.Async {
		if err := s.commands.DispatchAsync(cmd); err != nil {
			status := http.StatusServiceUnavailable
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"command_id": cmd.ID,
			"status":     domain.StatusPending,
		})
		return
	}

	result := s.commands.Dispatch(c.Request.Context(), cmd)
	c.JSON(commandStatusCode(result), result)
}

// commandStatusCode maps a command result to an HTTP status
func commandStatusCode(result domain.CommandResult) int {
	if result.Status == domain.StatusCompleted {
		return http.StatusOK
	}
	if result.Rejected {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
