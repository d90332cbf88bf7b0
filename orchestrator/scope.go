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

package orchestrator

import "fmt"

// scopeKey derives the telemetry/memory aggregation key for one turn
// from telemetry.ScopeKeyMode (§4.6): "global" collapses every turn into
// one scope, "per_user"/"per_org" aggregate by that dimension alone, and
// "composite" keys by the full persona/org/user tuple.
func scopeKey(mode string, in Input) string {
	switch mode {
	case "per_user":
		return "user:" + in.UserID
	case "per_org":
		return "org:" + in.OrganizationID
	case "composite":
		return fmt.Sprintf("persona:%s|org:%s|user:%s", in.PersonaID, in.OrganizationID, in.UserID)
	default:
		return "global"
	}
}
