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

package capability

import (
	"fmt"
	"sort"
	"strings"
)

// buildEmbeddingText renders d's embedding text following the fixed
// ordering contract (§4.1): display name or name, description,
// "Category: X", "Use cases: <tags>", tool-only "Parameters: <...>", and
// "Requires: <requiredTools>". fullSchema/fullContent never appear here.
func buildEmbeddingText(d *CapabilityDescriptor) string {
	var lines []string

	name := d.DisplayName
	if name == "" {
		name = d.Name
	}
	if name != "" {
		lines = append(lines, name)
	}

	if d.Description != "" {
		lines = append(lines, d.Description)
	}

	if d.Category != "" {
		lines = append(lines, fmt.Sprintf("Category: %s", d.Category))
	}

	if len(d.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("Use cases: %s", strings.Join(d.Tags, ", ")))
	}

	if d.Kind == KindTool && len(d.FullSchema) > 0 {
		if names := topLevelPropertyNames(d.FullSchema); len(names) > 0 {
			lines = append(lines, fmt.Sprintf("Parameters: %s", strings.Join(names, ", ")))
		}
	}

	if len(d.RequiredTools) > 0 {
		lines = append(lines, fmt.Sprintf("Requires: %s", strings.Join(d.RequiredTools, ", ")))
	}

	return strings.Join(lines, "\n")
}

// topLevelPropertyNames extracts the sorted top-level "properties" key
// names from a JSON-schema-shaped map, the way a tool's input schema is
// rendered into embedding text without concatenating the schema itself.
func topLevelPropertyNames(schema map[string]any) []string {
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
