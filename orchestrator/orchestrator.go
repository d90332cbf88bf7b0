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

// Package orchestrator implements the turn orchestrator (C8): it drives
// one turn's INIT → PLAN → GENERATE → TOOL_EXEC → FINALIZE/EMIT_ERROR →
// DONE state machine (§4.8) and returns a stream of typed chunks.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/agentos-run/turncore/adaptive"
	"github.com/agentos-run/turncore/memory"
	"github.com/agentos-run/turncore/model"
	"github.com/agentos-run/turncore/planner"
	"github.com/agentos-run/turncore/session"
	"github.com/agentos-run/turncore/telemetry"
	"github.com/agentos-run/turncore/tool"
	"github.com/agentos-run/turncore/turnerr"
	"golang.org/x/sync/errgroup"
)

// Config mirrors config.OrchestratorConfig plus the adaptive/telemetry
// knobs it composes; the orchestrator takes its own copy of every
// sub-config so it never imports the config package.
type Config struct {
	// MaxToolCallIterations is a pointer so an explicit 0 (§8: "iteration
	// budget of 0 must produce a valid partial outcome without any tool
	// call") is distinguishable from an unset field. Default: 5.
	MaxToolCallIterations     *int
	DefaultAgentTurnTimeoutMs int64

	TenantRoutingMode           string // "multi_tenant" | "single_tenant"
	TenantRoutingDefaultOrgID   string

	MemoryRecallEnabled         bool
	MemoryRecallMaxContextChars int
	MemoryRecallTopKPerScope    int
	MemoryRecallMinPriorTurns   int
	MemoryRecallProfileName     string

	TelemetryScopeKeyMode string

	Adaptive adaptive.Config
}

func (c Config) withDefaults() Config {
	if c.MaxToolCallIterations == nil {
		n := 5
		c.MaxToolCallIterations = &n
	}
	if c.DefaultAgentTurnTimeoutMs <= 0 {
		c.DefaultAgentTurnTimeoutMs = 60_000
	}
	if c.TenantRoutingMode == "" {
		c.TenantRoutingMode = "multi_tenant"
	}
	if c.MemoryRecallMaxContextChars <= 0 {
		c.MemoryRecallMaxContextChars = memory.DefaultMaxContextChars
	}
	if c.MemoryRecallTopKPerScope <= 0 {
		c.MemoryRecallTopKPerScope = memory.DefaultTopK
	}
	if c.MemoryRecallProfileName == "" {
		c.MemoryRecallProfileName = "default"
	}
	if c.TelemetryScopeKeyMode == "" {
		c.TelemetryScopeKeyMode = "global"
	}
	return c
}

// Input is one turn's request (§4.8 orchestrateTurn(input)).
type Input struct {
	ConversationID string
	OrganizationID string
	UserID         string
	PersonaID      string

	SystemInstruction string
	UserMessage       string
	CustomFlags       map[string]string

	PriorTurnCount int
}

// Orchestrator is the turn orchestrator (C8), composing the planner
// (C5), adaptive controller (C7), outcome telemetry (C6), an LLM, a
// tool registry, and optional long-term memory recall.
type Orchestrator struct {
	cfg Config

	planner   *planner.Planner
	telemetry *telemetry.Tracker
	llm       model.LLM
	tools     map[string]tool.Tool
	recaller  memory.Recaller
	locks     *session.Locks
}

// New constructs an Orchestrator. recaller and tools may be nil/empty —
// memory recall and tool execution are both optional capabilities.
func New(cfg Config, p *planner.Planner, tr *telemetry.Tracker, llm model.LLM, tools []tool.Tool, recaller memory.Recaller) *Orchestrator {
	reg := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		reg[t.Name()] = t
	}
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		planner:   p,
		telemetry: tr,
		llm:       llm,
		tools:     reg,
		recaller:  recaller,
		locks:     session.NewLocks(),
	}
}

// OrchestrateTurn runs one turn and returns a channel of typed chunks,
// closed when the turn reaches DONE (§4.8). Turns sharing a
// ConversationID are serialized; turns for distinct conversations run
// concurrently (§5).
func (o *Orchestrator) OrchestrateTurn(ctx context.Context, in Input) <-chan StreamChunk {
	out := make(chan StreamChunk, 64)

	go func() {
		defer close(out)
		o.locks.WithLock(in.ConversationID, func() {
			o.run(ctx, in, out)
		})
	}()

	return out
}

func (o *Orchestrator) run(ctx context.Context, in Input, out chan<- StreamChunk) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(o.cfg.DefaultAgentTurnTimeoutMs)*time.Millisecond)
	defer cancel()

	// INIT
	if o.cfg.TenantRoutingMode == "single_tenant" && in.OrganizationID == "" {
		in.OrganizationID = o.cfg.TenantRoutingDefaultOrgID
		emit(out, StreamChunk{Type: ChunkMetadataUpdate, Metadata: map[string]any{
			"tenantRouting": map[string]any{"substitutedOrganizationId": in.OrganizationID},
		}})
	}

	// PLAN
	plan, err := o.plan(ctx, in)
	if err != nil {
		o.emitError(out, ErrorReasonPlanningFailed, err)
		emit(out, StreamChunk{Type: ChunkDone})
		return
	}

	scope := scopeKey(o.cfg.TelemetryScopeKeyMode, in)

	if o.cfg.MemoryRecallEnabled && o.recaller != nil && in.PriorTurnCount >= o.cfg.MemoryRecallMinPriorTurns {
		recalled, rerr := o.recaller.Recall(ctx, scope, in.UserMessage, memory.RecallOptions{
			MaxContextChars: o.cfg.MemoryRecallMaxContextChars,
			TopK:            o.cfg.MemoryRecallTopKPerScope,
		})
		if rerr != nil {
			slog.Warn("orchestrator: memory recall failed", "error", rerr)
		} else if recalled != "" {
			plan.Capability.PromptContext = recalled + "\n" + plan.Capability.PromptContext
			emit(out, StreamChunk{Type: ChunkMetadataUpdate, Metadata: map[string]any{
				"longTermMemoryRecall": map[string]any{"profileName": o.cfg.MemoryRecallProfileName},
			}})
		}
	}

	// GENERATE <-> TOOL_EXEC
	finalText, unrecoveredErr, recoveredToolErr, truncated := o.converse(ctx, in, plan, out)

	if unrecoveredErr != nil {
		o.emitError(out, ErrorReasonToolFailed, unrecoveredErr)
		o.finalizeOutcome(scope, true, recoveredToolErr, truncated, in.CustomFlags, out)
		emit(out, StreamChunk{Type: ChunkDone})
		return
	}

	if ctx.Err() != nil {
		o.emitError(out, ErrorReasonTimeout, ctx.Err())
		o.finalizeOutcome(scope, true, recoveredToolErr, truncated, in.CustomFlags, out)
		emit(out, StreamChunk{Type: ChunkDone})
		return
	}

	// FINALIZE
	emit(out, StreamChunk{Type: ChunkFinalResponse, Text: finalText, Truncated: truncated})
	if o.recaller != nil {
		_ = o.recaller.Record(ctx, scope, memory.Turn{Role: "user", Content: in.UserMessage})
		_ = o.recaller.Record(ctx, scope, memory.Turn{Role: "assistant", Content: finalText})
	}
	o.finalizeOutcome(scope, false, recoveredToolErr, truncated, in.CustomFlags, out)

	// DONE
	emit(out, StreamChunk{Type: ChunkDone})
}

func (o *Orchestrator) plan(ctx context.Context, in Input) (planner.TurnPlan, error) {
	plan, err := o.planner.Plan(ctx, planner.Request{
		PersonaID:   in.PersonaID,
		UserMessage: in.UserMessage,
		CustomFlags: in.CustomFlags,
	})
	if err != nil {
		return planner.TurnPlan{}, err
	}

	if o.telemetry != nil {
		kpi := o.telemetry.Snapshot(scopeKey(o.cfg.TelemetryScopeKeyMode, in))
		plan, actions := adaptive.Apply(plan, kpi, o.cfg.Adaptive)
		plan.Diagnostics.AdaptiveExecution = actions.Applied()
		return plan, nil
	}
	return plan, nil
}

func (o *Orchestrator) emitError(out chan<- StreamChunk, reason ErrorReason, err error) {
	emit(out, StreamChunk{
		Type:         ChunkError,
		ErrorReason:  reason,
		ErrorMessage: err.Error(),
	})
}

// finalizeOutcome classifies the turn, records it to C6, and emits the
// taskOutcome/taskOutcomeKpi/taskOutcomeAlert metadata chunks (§4.8
// FINALIZE). customFlags.taskOutcome/taskOutcomeScore (§4.6, §6) take
// precedence over the derived status/score when present.
func (o *Orchestrator) finalizeOutcome(scope string, unrecoveredErr, recoveredToolErr, truncated bool, customFlags map[string]string, out chan<- StreamChunk) {
	if o.telemetry == nil {
		return
	}

	entry := telemetry.ClassifyOutcome(unrecoveredErr, recoveredToolErr, truncated, explicitStatus(customFlags), explicitScore(customFlags))

	kpi, alert := o.telemetry.Record(scope, entry)

	meta := map[string]any{"taskOutcome": string(entry.Status)}
	emit(out, StreamChunk{Type: ChunkMetadataUpdate, Metadata: map[string]any{"taskOutcomeKpi": kpi, "taskOutcome": meta["taskOutcome"]}})
	if alert != nil {
		emit(out, StreamChunk{Type: ChunkMetadataUpdate, Metadata: map[string]any{"taskOutcomeAlert": alert}})
	}
}

// explicitStatus reads the customFlags.taskOutcome override (§4.6, §6
// recognized keys). An unrecognized or absent value yields nil, leaving
// the derived status in place.
func explicitStatus(customFlags map[string]string) *telemetry.Status {
	raw, ok := customFlags["taskOutcome"]
	if !ok {
		return nil
	}
	switch telemetry.Status(raw) {
	case telemetry.Success, telemetry.Partial, telemetry.Failed:
		status := telemetry.Status(raw)
		return &status
	default:
		return nil
	}
}

// explicitScore reads the customFlags.taskOutcomeScore override (§4.6,
// §6 recognized keys). A missing or malformed value yields nil, leaving
// the derived score in place.
func explicitScore(customFlags map[string]string) *float64 {
	raw, ok := customFlags["taskOutcomeScore"]
	if !ok {
		return nil
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &score
}

// execTools runs every requested call against the tool registry, in
// parallel, emitting start/end chunks for each (§4.8 TOOL_EXEC; §5
// "parallel task-based" scheduling). Args are validated against the
// tool's input schema before Execute (§6); a mismatch fails the call
// with a turnerr.Validation error rather than ever reaching Execute. It
// returns the per-call results in call order, the turnerr.Validation error
// for any call whose args failed schema validation (nil for every other
// call, including unknown tools and failed Executes), and whether any
// call failed.
func (o *Orchestrator) execTools(ctx context.Context, calls []tool.Call, out chan<- StreamChunk) ([]tool.Result, []error, bool) {
	results := make([]tool.Result, len(calls))
	errs := make([]error, len(calls))
	anyFailed := false

	for _, c := range calls {
		emit(out, StreamChunk{Type: ChunkToolCallStart, ToolCallID: c.ID, ToolName: c.Name})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range calls {
		i, c := i, c
		g.Go(func() error {
			t, ok := o.tools[c.Name]
			if !ok {
				results[i] = tool.Result{Success: false, Error: fmt.Sprintf("unknown tool %q", c.Name)}
				return nil
			}
			if err := tool.ValidateArgs(t.Schema(), c.Args); err != nil {
				verr := turnerr.Wrap(turnerr.Validation, fmt.Sprintf("tool %q: args do not match schema", c.Name), err)
				results[i] = tool.Result{Success: false, Error: verr.Error()}
				errs[i] = verr
				return nil
			}
			res, err := t.Execute(gctx, c.Args)
			if err != nil {
				res = tool.Result{Success: false, Error: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range calls {
		if !results[i].Success {
			anyFailed = true
		}
		emit(out, StreamChunk{
			Type:       ChunkToolCallEnd,
			ToolCallID: c.ID,
			ToolName:   c.Name,
			ToolResult: results[i].Output,
			ToolOK:     results[i].Success,
		})
	}

	return results, errs, anyFailed
}

func emit(out chan<- StreamChunk, c StreamChunk) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	out <- c
}

// toolExecutionError wraps a persistent tool failure under fail_closed as a
// turnerr.ToolExecution error for the caller to classify (§7).
func toolExecutionError(toolName string, result tool.Result) error {
	return turnerr.New(turnerr.ToolExecution, fmt.Sprintf("tool %q failed: %s", toolName, result.Error))
}
