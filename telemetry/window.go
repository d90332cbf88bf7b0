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

package telemetry

import (
	"math"
	"sync"
	"time"
)

// window is a fixed-size ring buffer of OutcomeEntry for one scope key,
// guarded by its own mutex (§5: "protected by a per-key mutex").
type window struct {
	mu          sync.Mutex
	entries     []OutcomeEntry
	size        int
	lastAlertAt *time.Time
}

func newWindow(size int) *window {
	return &window{size: size}
}

// append adds entry, dropping the oldest sample once size is reached.
func (w *window) append(entry OutcomeEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entry)
	if len(w.entries) > w.size {
		w.entries = w.entries[len(w.entries)-w.size:]
	}
}

// snapshot returns a copy of the current entries, read under lock (§5:
// "KPI computation reads a snapshot under lock").
func (w *window) snapshot() []OutcomeEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]OutcomeEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// replace installs entries directly, used by loadWindows() replay on init.
func (w *window) replace(entries []OutcomeEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(entries) > w.size {
		entries = entries[len(entries)-w.size:]
	}
	w.entries = entries
}

// computeKpi derives successRate and weightedSuccessRate from entries
// (§4.6). weightedSuccessRate weights sample i (0 = oldest, N-1 = newest)
// by alpha^(N-1-i), so the newest sample dominates the decayed mean.
func computeKpi(entries []OutcomeEntry, alpha float64) KpiWindow {
	kpi := KpiWindow{SampleCount: len(entries)}
	if len(entries) == 0 {
		return kpi
	}

	var weightedScoreSum, weightSum float64
	n := len(entries)
	for i, e := range entries {
		switch e.Status {
		case Success:
			kpi.SuccessCount++
		case Partial:
			kpi.PartialCount++
		case Failed:
			kpi.FailedCount++
		}

		weight := math.Pow(alpha, float64(n-1-i))
		weightedScoreSum += e.Score * weight
		weightSum += weight
	}

	kpi.SuccessRate = float64(kpi.SuccessCount) / float64(n)
	if weightSum > 0 {
		kpi.WeightedSuccessRate = weightedScoreSum / weightSum
	}
	return kpi
}

// ClassifyOutcome derives Status and score from a terminal turn's signals
// (§4.6 Writing rules). explicitStatus/explicitScore are the
// customFlags.taskOutcome/taskOutcomeScore overrides, which take
// precedence when present.
func ClassifyOutcome(unrecoveredError, recoveredToolError, truncated bool, explicitStatus *Status, explicitScore *float64) OutcomeEntry {
	var status Status
	switch {
	case explicitStatus != nil:
		status = *explicitStatus
	case unrecoveredError:
		status = Failed
	case recoveredToolError || truncated:
		status = Partial
	default:
		status = Success
	}

	var score float64
	switch {
	case explicitScore != nil:
		score = *explicitScore
	case status == Success:
		score = 1.0
	case status == Partial:
		score = 0.5
	default:
		score = 0.0
	}

	return OutcomeEntry{Status: status, Score: score, Timestamp: time.Now()}
}
