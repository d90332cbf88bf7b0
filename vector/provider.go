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

// Package vector defines the vector store boundary consumed by the
// capability index (C1, §6) and provides concrete backends adapted from the
// teacher's pkg/vector implementations.
package vector

import "context"

// Result is one match returned by Query.
type Result struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// QueryOptions narrows a vector Query.
type QueryOptions struct {
	TopK int

	// Filter restricts results to points whose metadata matches every
	// key/value pair exactly (kind, category, onlyAvailable in §4.1/§4.3).
	Filter map[string]any

	// MinScore drops results scoring below this threshold.
	MinScore float32
}

// Provider is the vector store interface consumed by the capability index
// (§6 "Vector store interface").
type Provider interface {
	// Name identifies the backend (e.g. "qdrant", "chromem").
	Name() string

	// CreateCollection ensures a collection with the given vector
	// dimension exists. It is a no-op if the collection already exists.
	CreateCollection(ctx context.Context, collection string, dimension int) error

	// CollectionExists reports whether collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or replaces one point, keyed by id.
	Upsert(ctx context.Context, collection string, id string, embedding []float32, metadata map[string]any) error

	// Query performs a top-K similarity search with optional metadata
	// filter and score floor.
	Query(ctx context.Context, collection string, embedding []float32, opts QueryOptions) ([]Result, error)

	// Delete removes a point by id.
	Delete(ctx context.Context, collection string, id string) error

	// Close releases any resources (network connections) held by the
	// provider.
	Close() error
}
