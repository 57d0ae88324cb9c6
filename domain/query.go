package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueryType identifies a query handled by the read side.
type QueryType string

// Query type constants
const (
	QueryGetPatient          QueryType = "get_patient"
	QueryListPatients        QueryType = "list_patients"
	QuerySearchPatients      QueryType = "search_patients"
	QueryGetAppointment      QueryType = "get_appointment"
	QueryListAppointments    QueryType = "list_appointments"
	QueryGetClinicalNotes    QueryType = "get_clinical_notes"
	QueryGetBill             QueryType = "get_bill"
	QueryListBills           QueryType = "list_bills"
	QueryGetAnalyticsSummary QueryType = "get_analytics_summary"
)

// Query is a read request against the read models. CacheKey is an opaque
// string supplied by the caller; when set, the dispatcher checks the cache
// before touching the read-model store.
type Query struct {
	ID       string            `json:"id"`
	Type     QueryType         `json:"type"`
	Params   map[string]string `json:"params,omitempty"`
	UserID   string            `json:"user_id"`
	CacheKey string            `json:"cache_key,omitempty"`
	CacheTTL time.Duration     `json:"cache_ttl,omitempty"`
	Page     int               `json:"page,omitempty"`
	PageSize int               `json:"page_size,omitempty"`
}

// NewQuery creates a query with a fresh ID.
func NewQuery(queryType QueryType, params map[string]string) Query {
	return Query{
		ID:     uuid.New().String(),
		Type:   queryType,
		Params: params,
	}
}

// Param returns a named parameter, empty when absent.
func (q Query) Param(name string) string {
	if q.Params == nil {
		return ""
	}
	return q.Params[name]
}

// QueryResult is the outcome of a query. Cached indicates the payload was
// served from the cache without touching the read-model store. A missing
// entity yields nil Data with no error.
type QueryResult struct {
	QueryID    string      `json:"query_id"`
	Data       interface{} `json:"data"`
	Error      string      `json:"error,omitempty"`
	Cached     bool        `json:"cached"`
	TotalCount int64       `json:"total_count"`
	Page       int         `json:"page,omitempty"`
	PageSize   int         `json:"page_size,omitempty"`
}
