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

// Command turncore is the composition root for the turn orchestration
// core: it loads a config.Config, wires C1 through C8, and drives an
// interactive REPL against the resulting orchestrator.Orchestrator.
//
// Usage:
//
//	turncore -config config.yaml
//	turncore -config config.yaml -org acme -user alice -persona assistant
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agentos-run/turncore/config"
	"github.com/agentos-run/turncore/logging"
	"github.com/agentos-run/turncore/orchestrator"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the turncore YAML config")
	orgID := flag.String("org", "", "organizationId for every turn in this session")
	userID := flag.String("user", "", "userId for every turn in this session")
	personaID := flag.String("persona", "default", "personaId for every turn in this session")
	systemInstruction := flag.String("system", "You are a helpful assistant.", "system instruction for every turn")
	flag.Parse()

	if err := run(*configPath, *orgID, *userID, *personaID, *systemInstruction); err != nil {
		fmt.Fprintln(os.Stderr, "turncore:", err)
		os.Exit(1)
	}
}

func run(configPath, orgID, userID, personaID, systemInstruction string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var logFile *os.File
	if cfg.Logger.File != "" {
		f, cleanup, err := logging.OpenLogFile(cfg.Logger.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer cleanup()
		logFile = f
	} else {
		logFile = os.Stderr
	}
	logging.Init(logging.ParseLevel(cfg.Logger.Level), logFile, cfg.Logger.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer a.Close()

	slog.Info("turncore ready", "llm_provider", cfg.LLM.Provider, "llm_model", a.llm.Name())

	return replLoop(ctx, a.orchestrator, orgID, userID, personaID, systemInstruction)
}

// replLoop reads one user message per line from stdin, orchestrates a
// turn, and prints its text deltas to stdout and its tool and error chunks
// to stderr (metadata chunks go to the debug log). Every line shares one
// conversationId, so session.Locks serializes them exactly as it would
// concurrent requests against the same conversation.
func replLoop(ctx context.Context, orch *orchestrator.Orchestrator, orgID, userID, personaID, systemInstruction string) error {
	conversationID := fmt.Sprintf("repl-%d", os.Getpid())
	priorTurns := 0

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stderr, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(os.Stderr, "> ")
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		in := orchestrator.Input{
			ConversationID:    conversationID,
			OrganizationID:    orgID,
			UserID:            userID,
			PersonaID:         personaID,
			SystemInstruction: systemInstruction,
			UserMessage:       line,
			PriorTurnCount:    priorTurns,
		}

		for chunk := range orch.OrchestrateTurn(ctx, in) {
			printChunk(chunk)
		}
		priorTurns++
		fmt.Fprint(os.Stderr, "> ")
	}
	return scanner.Err()
}

func printChunk(c orchestrator.StreamChunk) {
	switch c.Type {
	case orchestrator.ChunkTextDelta:
		fmt.Print(c.Text)
	case orchestrator.ChunkToolCallStart:
		fmt.Fprintf(os.Stderr, "\n[tool %s started: %s]\n", c.ToolCallID, c.ToolName)
	case orchestrator.ChunkToolCallEnd:
		fmt.Fprintf(os.Stderr, "[tool %s done ok=%v]\n", c.ToolCallID, c.ToolOK)
	case orchestrator.ChunkFinalResponse:
		fmt.Println()
	case orchestrator.ChunkError:
		fmt.Fprintf(os.Stderr, "\n[error %s: %s]\n", c.ErrorReason, c.ErrorMessage)
	case orchestrator.ChunkMetadataUpdate:
		slog.Debug("metadata chunk", "metadata", c.Metadata)
	case orchestrator.ChunkDone:
	}
}
