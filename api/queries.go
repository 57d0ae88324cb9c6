package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/hospital/services/emr/domain"
)

// QueryRequest is the read-side request body. CacheTTL is seconds; zero
// with a CacheKey set falls back to the dispatcher default.
type QueryRequest struct {
	QueryType string            `json:"query_type" binding:"required"`
	Params    map[string]string `json:"params"`
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
	CacheKey  string            `json:"cache_key"`
	CacheTTL  int               `json:"cache_ttl"`
}

// dispatchQuery executes a read against the read models
func (s *Server) dispatchQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := domain.NewQuery(domain.QueryType(req.QueryType), req.Params)
	q.UserID = c.GetString("user_id")
	q.Page = req.Page
	q.PageSize = req.PageSize
	q.CacheKey = req.CacheKey
	q.CacheTTL = time.Duration(req.CacheTTL) * time.Second

	result := s.queries.Dispatch(c.Request.Context(), q)
	if result.Error != "" {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
