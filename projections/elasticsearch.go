package projections

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/config"
	"example.com/hospital/services/emr/models"
)

const patientIndexName = "patients"

// NewElasticsearchClient creates a new Elasticsearch client
func NewElasticsearchClient(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	elasticCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 10,
		},
	}

	client, err := elasticsearch.NewClient(elasticCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	// Check the connection
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("error connecting to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch returned error: %s", res.String())
	}

	log.Info().Msg("Successfully connected to Elasticsearch")
	return client, nil
}

// FormatIndex adds the prefix to the index name
func FormatIndex(indexName string, cfg config.ElasticConfig) string {
	return cfg.Prefix + "-" + indexName
}

// SearchIndexer mirrors the patient read model into Elasticsearch for
// full-text search. Indexing is best effort: the relational read model
// stays authoritative and the index can always be rebuilt from it.
type SearchIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewSearchIndexer creates a search indexer over the patients index
func NewSearchIndexer(client *elasticsearch.Client, cfg config.ElasticConfig) *SearchIndexer {
	return &SearchIndexer{
		client: client,
		index:  FormatIndex(patientIndexName, cfg),
	}
}

// EnsureIndex creates the patients index if it does not exist
func (s *SearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists(
		[]string{s.index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("error checking if index %s exists: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	log.Info().Msgf("Creating index %s", s.index)
	createRes, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("error creating index %s: %w", s.index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("error creating index %s: %s", s.index, createRes.String())
	}
	return nil
}

// IndexPatient writes or overwrites one patient document, keyed by
// patient ID so re-indexing the same row is idempotent
func (s *SearchIndexer) IndexPatient(ctx context.Context, row *models.PatientReadModel) error {
	doc, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal patient document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: row.PatientID,
		Body:       bytes.NewReader(doc),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to index patient document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing patient document: %s", res.String())
	}
	return nil
}

// SearchPatients runs a full-text query over patient names, email and
// department. Returns the matching documents and the total hit count.
func (s *SearchIndexer) SearchPatients(ctx context.Context, term string, page, pageSize int) ([]models.PatientReadModel, int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"first_name^2", "last_name^2", "email", "department"},
			},
		},
		"from": (page - 1) * pageSize,
		"size": pageSize,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, 0, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search patients: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("error searching patients: %s", res.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.PatientReadModel `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	patients := make([]models.PatientReadModel, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		patients = append(patients, hit.Source)
	}
	return patients, result.Hits.Total.Value, nil
}
