// internal/onboarding/registry/elasticsearch.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/models"
)

// ElasticsearchClient resolves registry records from the authority snapshot
// index. Records are indexed with the same field names the models use.
type ElasticsearchClient struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchClient(client *elasticsearch.Client, index string) *ElasticsearchClient {
	return &ElasticsearchClient{
		client: client,
		index:  index,
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.CarrierRegistryRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *ElasticsearchClient) Lookup(ctx context.Context, docketNumber string) (*models.CarrierRegistryRecord, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"docketNumber": docketNumber,
			},
		},
	}

	body, _ := json.Marshal(queryBody)
	size := 1

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.NewRegistryUnavailableError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewRegistryUnavailableError(fmt.Errorf("search error: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewRegistryUnavailableError(fmt.Errorf("decode search response: %w", err))
	}

	if parsed.Hits.Total.Value == 0 || len(parsed.Hits.Hits) == 0 {
		return nil, errors.NewRegistryNotFoundError(docketNumber)
	}

	record := parsed.Hits.Hits[0].Source
	return &record, nil
}
