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

// Package assembler implements the context assembler (C3): it packs
// discovery results into three hard token-budgeted tiers.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentos-run/turncore/capability"
)

// estimateTokens is the fixed token-budget contract (§4.3): ceil(len/4).
// Implementations must not substitute a stricter tokenizer, since doing so
// could make an assembled context exceed what callers sized their
// downstream budgets against.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Config configures an Assembler's tier budgets (§4.3 defaults).
type Config struct {
	Tier0Budget       int
	Tier1Budget       int
	Tier2Budget       int
	Tier1TopK         int
	Tier2TopK         int
	Tier1MinRelevance float64
}

// Assembled is the fully packed, three-tier discovery context.
type Assembled struct {
	Tier0 string
	Tier1 []string
	Tier2 []string

	Tier0Tokens int
	Tier1Tokens int
	Tier2Tokens int
}

// Assembler packs capability search hits into Tier-0/1/2 strings within
// the configured token budgets.
type Assembler struct {
	cfg   Config
	cache *lru.Cache[uint64, string]
}

// New constructs an Assembler. A small LRU backs the Tier-0 category
// summary cache, keyed by capability index version (§4.3: "Cached keyed
// by index version").
func New(cfg Config) (*Assembler, error) {
	if cfg.Tier1TopK <= 0 {
		cfg.Tier1TopK = 5
	}
	if cfg.Tier2TopK <= 0 {
		cfg.Tier2TopK = 2
	}
	if cfg.Tier1MinRelevance == 0 {
		cfg.Tier1MinRelevance = 0.3
	}
	if cfg.Tier0Budget <= 0 {
		cfg.Tier0Budget = 200
	}
	if cfg.Tier1Budget <= 0 {
		cfg.Tier1Budget = 800
	}
	if cfg.Tier2Budget <= 0 {
		cfg.Tier2Budget = 2000
	}

	cache, err := lru.New[uint64, string](8)
	if err != nil {
		return nil, fmt.Errorf("assembler: new lru cache: %w", err)
	}
	return &Assembler{cfg: cfg, cache: cache}, nil
}

// Assemble packs descriptors (for Tier 0) and hits (for Tiers 1 and 2)
// into the three budgeted tiers (§4.3).
func (a *Assembler) Assemble(indexVersion uint64, descriptors []capability.CapabilityDescriptor, hits []capability.SearchHit) Assembled {
	tier0 := a.buildTier0(indexVersion, descriptors)
	tier1, tier1Hits := a.buildTier1(hits)
	tier2 := a.buildTier2(tier1Hits)

	return Assembled{
		Tier0:       tier0,
		Tier1:       tier1,
		Tier2:       tier2,
		Tier0Tokens: estimateTokens(tier0),
		Tier1Tokens: sumTokens(tier1),
		Tier2Tokens: sumTokens(tier2),
	}
}

func sumTokens(lines []string) int {
	total := 0
	for _, l := range lines {
		total += estimateTokens(l)
	}
	return total
}

// buildTier0 returns the category summary string, cached by index
// version: group by category, sort by count desc, show up to 4 names per
// category then "(+N more)" (§4.3).
func (a *Assembler) buildTier0(indexVersion uint64, descriptors []capability.CapabilityDescriptor) string {
	if cached, ok := a.cache.Get(indexVersion); ok {
		return cached
	}

	type categoryGroup struct {
		name  string
		names []string
	}

	groups := make(map[string]*categoryGroup)
	var order []string
	for _, d := range descriptors {
		category := d.Category
		if category == "" {
			category = "uncategorized"
		}
		g, ok := groups[category]
		if !ok {
			g = &categoryGroup{name: category}
			groups[category] = g
			order = append(order, category)
		}
		name := d.DisplayName
		if name == "" {
			name = d.Name
		}
		g.names = append(g.names, name)
	}

	sort.Slice(order, func(i, j int) bool {
		if len(groups[order[i]].names) != len(groups[order[j]].names) {
			return len(groups[order[i]].names) > len(groups[order[j]].names)
		}
		return order[i] < order[j]
	})

	var parts []string
	budget := a.cfg.Tier0Budget
	for _, category := range order {
		g := groups[category]
		shown := g.names
		suffix := ""
		if len(shown) > 4 {
			suffix = fmt.Sprintf(" (+%d more)", len(shown)-4)
			shown = shown[:4]
		}
		line := fmt.Sprintf("%s: %s%s", category, strings.Join(shown, ", "), suffix)
		if budget > 0 && estimateTokens(strings.Join(append(parts, line), "\n")) > budget {
			break
		}
		parts = append(parts, line)
	}

	summary := strings.Join(parts, "\n")
	a.cache.Add(indexVersion, summary)
	return summary
}

// buildTier1 renders up to tier1TopK hits scoring >= tier1MinRelevance,
// one line each, stopping before exceeding tier1Budget (§4.3). It also
// returns the hits that actually survived the filter and budget cutoff,
// in rendered order, so buildTier2 can draw its entries from Tier 1's
// actual selection rather than the raw pre-filter hits.
func (a *Assembler) buildTier1(hits []capability.SearchHit) ([]string, []capability.SearchHit) {
	var lines []string
	var selected []capability.SearchHit
	used := 0
	shown := 0

	for _, h := range hits {
		if shown >= a.cfg.Tier1TopK {
			break
		}
		if float64(h.Score) < a.cfg.Tier1MinRelevance {
			continue
		}

		line := renderTier1Line(shown+1, h)
		tokens := estimateTokens(line)
		if a.cfg.Tier1Budget > 0 && used+tokens > a.cfg.Tier1Budget {
			break
		}

		lines = append(lines, line)
		selected = append(selected, h)
		used += tokens
		shown++
	}
	return lines, selected
}

func renderTier1Line(n int, h capability.SearchHit) string {
	d := h.Descriptor
	name := d.DisplayName
	if name == "" {
		name = d.Name
	}

	desc := truncate(d.Description, 120)

	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s (%s). %s", n, name, d.Kind, desc)

	if d.Kind == capability.KindTool {
		if names := topLevelParamNames(d.FullSchema); len(names) > 0 {
			fmt.Fprintf(&b, ". Params: %s", strings.Join(names, ", "))
		}
	}
	if len(d.RequiredTools) > 0 {
		fmt.Fprintf(&b, ". Requires: %s", strings.Join(d.RequiredTools, ", "))
	}
	if !d.Available {
		b.WriteString(". [not available]")
	}

	return b.String()
}

// buildTier2 renders up to tier2TopK entries taken from tier1Hits, the
// hits that actually survived Tier 1's relevance filter and budget
// cutoff (not a re-ranked set, §4.3), with full detail.
func (a *Assembler) buildTier2(tier1Hits []capability.SearchHit) []string {
	var lines []string
	used := 0

	limit := a.cfg.Tier2TopK
	if limit > len(tier1Hits) {
		limit = len(tier1Hits)
	}

	for i := 0; i < limit; i++ {
		line := renderTier2Entry(tier1Hits[i])
		tokens := estimateTokens(line)
		if a.cfg.Tier2Budget > 0 && used+tokens > a.cfg.Tier2Budget {
			break
		}
		lines = append(lines, line)
		used += tokens
	}
	return lines
}

func renderTier2Entry(h capability.SearchHit) string {
	d := h.Descriptor
	name := d.DisplayName
	if name == "" {
		name = d.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s", name, d.Description)

	switch d.Kind {
	case capability.KindTool:
		if len(d.FullSchema) > 0 {
			fmt.Fprintf(&b, "\nSchema: %s", formatSchema(d.FullSchema))
		}
	case capability.KindSkill:
		if d.FullContent != "" {
			fmt.Fprintf(&b, "\n%s", d.FullContent)
		}
	}

	if len(d.RequiredSecrets) > 0 {
		fmt.Fprintf(&b, "\nRequired secrets: %s", strings.Join(d.RequiredSecrets, ", "))
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&b, "\nTags: %s", strings.Join(d.Tags, ", "))
	}

	return b.String()
}

func topLevelParamNames(schema map[string]any) []string {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatSchema(schema map[string]any) string {
	names := topLevelParamNames(schema)
	if len(names) == 0 {
		return "{}"
	}
	return fmt.Sprintf("{%s}", strings.Join(names, ", "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
