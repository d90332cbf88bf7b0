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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		RollingWindowSize:             20,
		AlertMinSamples:               3,
		AlertBelowWeightedSuccessRate: 0.6,
		AlertCooldownMs:               1000,
		DecayAlpha:                    0.9,
	}
}

func TestComputeKpi_EmptyWindow(t *testing.T) {
	kpi := computeKpi(nil, 0.9)
	assert.Equal(t, 0, kpi.SampleCount)
	assert.Zero(t, kpi.WeightedSuccessRate)
}

func TestComputeKpi_AllSuccessYieldsRateOne(t *testing.T) {
	entries := []OutcomeEntry{
		{Status: Success, Score: 1},
		{Status: Success, Score: 1},
		{Status: Success, Score: 1},
	}
	kpi := computeKpi(entries, 0.9)
	assert.Equal(t, 3, kpi.SampleCount)
	assert.Equal(t, 1.0, kpi.SuccessRate)
	assert.InDelta(t, 1.0, kpi.WeightedSuccessRate, 1e-9)
}

func TestComputeKpi_NewestSampleDominatesDecay(t *testing.T) {
	// Oldest entries score 0, newest scores 1; with alpha<1 the decayed
	// mean should sit well above the unweighted average of 0.25.
	entries := []OutcomeEntry{
		{Status: Failed, Score: 0},
		{Status: Failed, Score: 0},
		{Status: Failed, Score: 0},
		{Status: Success, Score: 1},
	}
	kpi := computeKpi(entries, 0.5)
	assert.Greater(t, kpi.WeightedSuccessRate, 0.25)
}

func TestClassifyOutcome_UnrecoveredErrorIsFailed(t *testing.T) {
	entry := ClassifyOutcome(true, false, false, nil, nil)
	assert.Equal(t, Failed, entry.Status)
	assert.Equal(t, 0.0, entry.Score)
}

func TestClassifyOutcome_RecoveredToolErrorIsPartial(t *testing.T) {
	entry := ClassifyOutcome(false, true, false, nil, nil)
	assert.Equal(t, Partial, entry.Status)
	assert.Equal(t, 0.5, entry.Score)
}

func TestClassifyOutcome_CleanTurnIsSuccess(t *testing.T) {
	entry := ClassifyOutcome(false, false, false, nil, nil)
	assert.Equal(t, Success, entry.Status)
	assert.Equal(t, 1.0, entry.Score)
}

func TestClassifyOutcome_ExplicitOverrideWins(t *testing.T) {
	status := Failed
	score := 0.2
	entry := ClassifyOutcome(false, false, false, &status, &score)
	assert.Equal(t, Failed, entry.Status)
	assert.Equal(t, 0.2, entry.Score)
}

func TestWindow_RingBufferDropsOldest(t *testing.T) {
	w := newWindow(2)
	w.append(OutcomeEntry{Status: Success})
	w.append(OutcomeEntry{Status: Partial})
	w.append(OutcomeEntry{Status: Failed})

	got := w.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, Partial, got[0].Status)
	assert.Equal(t, Failed, got[1].Status)
}

func TestTracker_Record_AccumulatesPerScope(t *testing.T) {
	tr, err := New(baseConfig(), nil)
	require.NoError(t, err)

	kpi, alert := tr.Record("scope-a", OutcomeEntry{Status: Success, Score: 1})
	assert.Equal(t, 1, kpi.SampleCount)
	assert.Nil(t, alert)

	kpi, _ = tr.Record("scope-b", OutcomeEntry{Status: Failed, Score: 0})
	assert.Equal(t, 1, kpi.SampleCount)

	kpi = tr.Snapshot("scope-a")
	assert.Equal(t, 1, kpi.SampleCount)
}

func TestTracker_Alert_GatedByMinSamplesAndThreshold(t *testing.T) {
	cfg := baseConfig()
	cfg.AlertMinSamples = 2
	cfg.AlertBelowWeightedSuccessRate = 0.9
	tr, err := New(cfg, nil)
	require.NoError(t, err)

	_, alert := tr.Record("scope", OutcomeEntry{Status: Failed, Score: 0})
	assert.Nil(t, alert, "below min samples")

	_, alert = tr.Record("scope", OutcomeEntry{Status: Failed, Score: 0})
	require.NotNil(t, alert, "second sample crosses min samples and is below threshold")
	assert.Equal(t, "scope", alert.ScopeKey)
}

func TestTracker_Alert_RespectsCooldown(t *testing.T) {
	cfg := baseConfig()
	cfg.AlertMinSamples = 1
	cfg.AlertBelowWeightedSuccessRate = 0.9
	cfg.AlertCooldownMs = 60_000
	tr, err := New(cfg, nil)
	require.NoError(t, err)

	_, first := tr.Record("scope", OutcomeEntry{Status: Failed, Score: 0})
	require.NotNil(t, first)

	_, second := tr.Record("scope", OutcomeEntry{Status: Failed, Score: 0})
	assert.Nil(t, second, "within cooldown window")
}

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string][]OutcomeEntry
	preload map[string][]OutcomeEntry
	closed  bool
}

func (f *fakeStore) LoadWindows() (map[string][]OutcomeEntry, error) {
	return f.preload, nil
}

func (f *fakeStore) SaveWindow(scopeKey string, entries []OutcomeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string][]OutcomeEntry)
	}
	f.saved[scopeKey] = entries
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func TestTracker_New_ReplaysStoreOnConstruct(t *testing.T) {
	store := &fakeStore{preload: map[string][]OutcomeEntry{
		"scope": {{Status: Success, Score: 1}, {Status: Success, Score: 1}},
	}}
	tr, err := New(baseConfig(), store)
	require.NoError(t, err)

	kpi := tr.Snapshot("scope")
	assert.Equal(t, 2, kpi.SampleCount)
}

func TestTracker_Record_PersistsToStore(t *testing.T) {
	store := &fakeStore{}
	tr, err := New(baseConfig(), store)
	require.NoError(t, err)

	tr.Record("scope", OutcomeEntry{Status: Success, Score: 1})

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.saved["scope"]) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.Close())
	assert.True(t, store.closed)
}
