// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures the Pinecone vector provider.
//
// Adapted from the teacher's pkg/vector/pinecone.go.
type PineconeConfig struct {
	APIKey      string `yaml:"api_key"`
	Host        string `yaml:"host,omitempty"`
	IndexName   string `yaml:"index_name"`
	Environment string `yaml:"environment,omitempty"`
}

// PineconeProvider implements Provider using Pinecone.
type PineconeProvider struct {
	client    *pinecone.Client
	config    PineconeConfig
	indexName string
}

// NewPineconeProvider creates a Pinecone-backed Provider.
func NewPineconeProvider(cfg PineconeConfig) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}

	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}

	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("create pinecone client: %w", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "agentos-capabilities"
	}

	return &PineconeProvider{client: client, config: cfg, indexName: indexName}, nil
}

func (p *PineconeProvider) Name() string { return "pinecone" }

func (p *PineconeProvider) resolveIndex(collection string) string {
	if collection == "" {
		return p.indexName
	}
	return collection
}

func (p *PineconeProvider) connection(ctx context.Context, indexName string) (*pinecone.IndexConnection, error) {
	index, err := p.client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %s: %w", indexName, err)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: index.Host})
	if err != nil {
		return nil, fmt.Errorf("open index connection: %w", err)
	}
	return conn, nil
}

func (p *PineconeProvider) CollectionExists(ctx context.Context, collection string) (bool, error) {
	indexes, err := p.client.ListIndexes(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexes: %w", err)
	}
	name := p.resolveIndex(collection)
	for _, idx := range indexes {
		if idx.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// CreateCollection only verifies the index exists: Pinecone indexes must be
// provisioned out of band (console or admin API), so the capability index's
// build() step surfaces a clear error instead of silently failing later.
func (p *PineconeProvider) CreateCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := p.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("pinecone index %s does not exist; create it via console or API", p.resolveIndex(collection))
	}
	return nil
}

func (p *PineconeProvider) Upsert(ctx context.Context, collection string, id string, embedding []float32, metadata map[string]any) error {
	conn, err := p.connection(ctx, p.resolveIndex(collection))
	if err != nil {
		return err
	}
	defer conn.Close()

	var meta *pinecone.Metadata
	if len(metadata) > 0 {
		iface := make(map[string]interface{}, len(metadata))
		for k, v := range metadata {
			iface[k] = v
		}
		meta, err = structpb.NewStruct(iface)
		if err != nil {
			return fmt.Errorf("convert metadata: %w", err)
		}
	}

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{Id: id, Values: embedding, Metadata: meta}})
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", id, err)
	}
	return nil
}

func (p *PineconeProvider) Query(ctx context.Context, collection string, embedding []float32, opts QueryOptions) ([]Result, error) {
	conn, err := p.connection(ctx, p.resolveIndex(collection))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	var filter *pinecone.MetadataFilter
	if len(opts.Filter) > 0 {
		iface := make(map[string]interface{}, len(opts.Filter))
		for k, v := range opts.Filter {
			iface[k] = v
		}
		filter, err = structpb.NewStruct(iface)
		if err != nil {
			return nil, fmt.Errorf("convert filter: %w", err)
		}
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(topK),
		MetadataFilter:  filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query pinecone: %w", err)
	}

	results := convertPineconeResults(resp.Matches)
	if opts.MinScore > 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= opts.MinScore {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}
	return results, nil
}

func (p *PineconeProvider) Delete(ctx context.Context, collection string, id string) error {
	conn, err := p.connection(ctx, p.resolveIndex(collection))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.DeleteVectorsById(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

func (p *PineconeProvider) Close() error { return nil }

func convertPineconeResults(matches []*pinecone.ScoredVector) []Result {
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil {
			continue
		}
		metadata := make(map[string]any)
		if m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				metadata[k] = v
			}
		}
		results = append(results, Result{ID: m.Vector.Id, Score: m.Score, Metadata: metadata})
	}
	return results
}
