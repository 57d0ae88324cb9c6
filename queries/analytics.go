package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/models"
	"example.com/hospital/services/emr/projections"
	"example.com/hospital/services/emr/repository"
)

// AnalyticsSummary is the shape returned by get_analytics_summary
type AnalyticsSummary struct {
	Global      *models.AnalyticsReadModel           `json:"global"`
	Departments map[string]models.AnalyticsReadModel `json:"departments"`
}

// AnalyticsQueryHandler serves the hospital-wide analytics summary
type AnalyticsQueryHandler struct {
	repo repository.AnalyticsRepository
}

// NewAnalyticsQueryHandler creates an analytics query handler
func NewAnalyticsQueryHandler(repo repository.AnalyticsRepository) *AnalyticsQueryHandler {
	return &AnalyticsQueryHandler{repo: repo}
}

// Register binds the analytics query type on the dispatcher
func (h *AnalyticsQueryHandler) Register(d *Dispatcher) error {
	return d.Register(domain.QueryGetAnalyticsSummary, h.HandleGetAnalyticsSummary)
}

// HandleGetAnalyticsSummary returns the running counters. With a
// department param it returns that department's row alone; otherwise the
// global row plus every department row.
func (h *AnalyticsQueryHandler) HandleGetAnalyticsSummary(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
	if dept := q.Param("department"); dept != "" {
		row, err := h.repo.GetByScope(ctx, "department:"+dept)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.QueryResult{Data: nil}, nil
			}
			return domain.QueryResult{}, fmt.Errorf("failed to load analytics row: %w", err)
		}
		return domain.QueryResult{Data: row, TotalCount: 1}, nil
	}

	rows, err := h.repo.ListScopes(ctx)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("failed to list analytics scopes: %w", err)
	}

	summary := AnalyticsSummary{Departments: make(map[string]models.AnalyticsReadModel)}
	for i := range rows {
		row := rows[i]
		if row.ScopeID == projections.GlobalScope {
			summary.Global = &row
			continue
		}
		dept := strings.TrimPrefix(row.ScopeID, "department:")
		summary.Departments[dept] = row
	}
	return domain.QueryResult{Data: summary, TotalCount: int64(len(rows))}, nil
}
