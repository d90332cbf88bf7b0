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

// Package logging configures the process-wide slog.Logger from a
// config.LoggerConfig, following the teacher's pkg/logger convention: the
// composition root calls Init once, and every other package only ever
// calls the slog package-level functions.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a config string into an slog.Level. Unknown values
// fall back to Warn, matching the teacher's conservative default.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// simpleHandler renders "LEVEL message key=value ...", the teacher's
// "simple" format, prefixed with a timestamp only when verbose is set.
type simpleHandler struct {
	inner   slog.Handler
	writer  *os.File
	verbose bool
}

func (h *simpleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *simpleHandler) Handle(ctx context.Context, record slog.Record) error {
	var buf strings.Builder

	if h.verbose && !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}

	level := record.Level.String()
	if level == "WARN+0" {
		level = "WARN"
	}
	buf.WriteString(level)
	buf.WriteString(" ")
	buf.WriteString(record.Message)

	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")

	_, err := h.writer.WriteString(buf.String())
	return err
}

func (h *simpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &simpleHandler{inner: h.inner.WithAttrs(attrs), writer: h.writer, verbose: h.verbose}
}

func (h *simpleHandler) WithGroup(name string) slog.Handler {
	return &simpleHandler{inner: h.inner.WithGroup(name), writer: h.writer, verbose: h.verbose}
}

// Init builds an slog.Logger from level/output/format and installs it as
// the process default via slog.SetDefault. format is "simple" (default,
// level + message) or "verbose" (adds a timestamp); any other value falls
// back to slog's standard TextHandler output.
func Init(level slog.Level, output *os.File, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(output, opts)
	switch format {
	case "", "simple":
		handler = &simpleHandler{inner: handler, writer: output, verbose: false}
	case "verbose":
		handler = &simpleHandler{inner: handler, writer: output, verbose: true}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// OpenLogFile opens (creating if necessary) a log file for appending, along
// with a cleanup function the caller should defer.
func OpenLogFile(path string) (*os.File, func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}
