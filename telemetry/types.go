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

// Package telemetry implements the outcome telemetry component (C6): a
// bounded rolling history of turn outcomes per scope, derived KPIs,
// alerting, and an optional persistent store.
package telemetry

import "time"

// Status is the terminal classification of one turn (§3).
type Status string

const (
	Success Status = "success"
	Partial Status = "partial"
	Failed  Status = "failed"
)

// OutcomeEntry is one ring-buffer sample (§3).
type OutcomeEntry struct {
	Status    Status
	Score     float64
	Timestamp time.Time
}

// KpiWindow is the derived-per-scope view (§3).
type KpiWindow struct {
	SampleCount         int
	SuccessCount        int
	PartialCount        int
	FailedCount         int
	SuccessRate         float64
	WeightedSuccessRate float64
	LastAlertAt         *time.Time
}

// Alert is emitted when a scope's weighted success rate drops below
// threshold with enough samples to be meaningful (§4.6).
type Alert struct {
	ScopeKey            string
	SampleCount         int
	WeightedSuccessRate float64
	Threshold           float64
	At                  time.Time
}

// Store is the telemetry persistence boundary consumed by C6 (§6).
type Store interface {
	// LoadWindows replays every scope's persisted entries on init.
	LoadWindows() (map[string][]OutcomeEntry, error)

	// SaveWindow overwrites scopeKey's entries atomically.
	SaveWindow(scopeKey string, entries []OutcomeEntry) error

	// Close releases resources held by the store.
	Close() error
}
