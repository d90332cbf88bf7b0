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
	"log/slog"
	"sync"
	"time"
)

// Config mirrors config.TelemetryConfig; Tracker takes its own copy so it
// never imports the config package.
type Config struct {
	RollingWindowSize             int
	AlertMinSamples               int
	AlertBelowWeightedSuccessRate float64
	AlertCooldownMs               int64
	DecayAlpha                    float64
}

// Tracker is the outcome telemetry component (C6): a bounded rolling
// history of turn outcomes per scope key, derived KPIs, and alerting.
type Tracker struct {
	cfg   Config
	store Store

	mu      sync.RWMutex
	windows map[string]*window
}

// New constructs a Tracker. If store is non-nil, LoadWindows is replayed
// synchronously so KPIs are warm immediately after construction (§6).
func New(cfg Config, store Store) (*Tracker, error) {
	t := &Tracker{
		cfg:     cfg,
		store:   store,
		windows: make(map[string]*window),
	}

	if store == nil {
		return t, nil
	}

	loaded, err := store.LoadWindows()
	if err != nil {
		return nil, err
	}
	for scopeKey, entries := range loaded {
		w := newWindow(t.cfg.RollingWindowSize)
		w.replace(entries)
		t.windows[scopeKey] = w
	}
	return t, nil
}

func (t *Tracker) windowFor(scopeKey string) *window {
	t.mu.RLock()
	w, ok := t.windows[scopeKey]
	t.mu.RUnlock()
	if ok {
		return w
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok = t.windows[scopeKey]; ok {
		return w
	}
	w = newWindow(t.cfg.RollingWindowSize)
	t.windows[scopeKey] = w
	return w
}

// Record appends one outcome to scopeKey's ring, persists the window
// (fire-and-forget if a store is configured, §6 "never block the
// orchestrator critical path"), and returns the refreshed KPI plus an
// Alert when the cooldown-gated threshold is breached.
func (t *Tracker) Record(scopeKey string, entry OutcomeEntry) (KpiWindow, *Alert) {
	w := t.windowFor(scopeKey)
	w.append(entry)

	entries := w.snapshot()
	kpi := computeKpi(entries, t.cfg.DecayAlpha)

	var alert *Alert
	w.mu.Lock()
	kpi.LastAlertAt = w.lastAlertAt
	if t.shouldAlert(kpi, w.lastAlertAt) {
		now := time.Now()
		w.lastAlertAt = &now
		kpi.LastAlertAt = &now
		alert = &Alert{
			ScopeKey:            scopeKey,
			SampleCount:         kpi.SampleCount,
			WeightedSuccessRate: kpi.WeightedSuccessRate,
			Threshold:           t.cfg.AlertBelowWeightedSuccessRate,
			At:                  now,
		}
	}
	w.mu.Unlock()

	if t.store != nil {
		go func() {
			if err := t.store.SaveWindow(scopeKey, entries); err != nil {
				slog.Warn("telemetry: failed to persist window", "scope_key", scopeKey, "error", err)
			}
		}()
	}

	return kpi, alert
}

// shouldAlert gates on §4.6: enough samples, below threshold, and outside
// the cooldown window since the last alert for this scope.
func (t *Tracker) shouldAlert(kpi KpiWindow, lastAlertAt *time.Time) bool {
	if kpi.SampleCount < t.cfg.AlertMinSamples {
		return false
	}
	if kpi.WeightedSuccessRate >= t.cfg.AlertBelowWeightedSuccessRate {
		return false
	}
	if lastAlertAt == nil {
		return true
	}
	return time.Since(*lastAlertAt) >= time.Duration(t.cfg.AlertCooldownMs)*time.Millisecond
}

// Snapshot returns the current KPI for scopeKey without recording a new
// outcome (used by the adaptive controller, §4.7).
func (t *Tracker) Snapshot(scopeKey string) KpiWindow {
	w := t.windowFor(scopeKey)
	entries := w.snapshot()
	kpi := computeKpi(entries, t.cfg.DecayAlpha)
	w.mu.Lock()
	kpi.LastAlertAt = w.lastAlertAt
	w.mu.Unlock()
	return kpi
}

// Close releases the backing store, if any.
func (t *Tracker) Close() error {
	if t.store == nil {
		return nil
	}
	return t.store.Close()
}
