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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// manifestFile is the on-disk shape of a CAPABILITY.yaml/.yml entry (§6
// File manifests). The contract only requires top-level scalars and
// arrays; yaml.v3 decodes the superset without issue.
type manifestFile struct {
	ID              string   `yaml:"id"`
	Kind            string   `yaml:"kind"`
	Name            string   `yaml:"name"`
	DisplayName     string   `yaml:"display_name"`
	Description     string   `yaml:"description"`
	Category        string   `yaml:"category"`
	Tags            []string `yaml:"tags"`
	RequiredSecrets []string `yaml:"required_secrets"`
	RequiredTools   []string `yaml:"required_tools"`
	HasSideEffects  bool     `yaml:"has_side_effects"`
}

// ScanManifests walks roots plus any paths listed in the pathListEnv
// environment variable, reading every CAPABILITY.yaml/.yml found. A
// sibling SKILL.md, if present, supplies FullContent.
func ScanManifests(roots []string, pathListEnv string) ([]CapabilityDescriptor, error) {
	allRoots := append([]string{}, roots...)
	if pathListEnv != "" {
		if v := os.Getenv(pathListEnv); v != "" {
			allRoots = append(allRoots, filepath.SplitList(v)...)
		}
	}

	var out []CapabilityDescriptor
	for _, root := range allRoots {
		root = expandHome(root)
		entries, err := scanRoot(root)
		if err != nil {
			slog.Warn("capability: manifest scan failed", "root", root, "error", err)
			continue
		}
		out = append(out, entries...)
	}
	return out, nil
}

func scanRoot(root string) ([]CapabilityDescriptor, error) {
	var out []CapabilityDescriptor

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name != "CAPABILITY.yaml" && name != "CAPABILITY.yml" {
			return nil
		}

		desc, parseErr := parseManifest(path)
		if parseErr != nil {
			slog.Warn("capability: invalid manifest", "path", path, "error", parseErr)
			return nil
		}
		out = append(out, desc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseManifest(path string) (CapabilityDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CapabilityDescriptor{}, err
	}

	var mf manifestFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return CapabilityDescriptor{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if mf.Name == "" {
		return CapabilityDescriptor{}, fmt.Errorf("%s: name is required", path)
	}

	kind := Kind(mf.Kind)
	if kind == "" {
		kind = KindSkill
	}

	id := mf.ID
	if id == "" {
		id = fmt.Sprintf("%s:%s", kind, mf.Name)
	}

	desc := CapabilityDescriptor{
		ID:              id,
		Kind:            kind,
		Name:            mf.Name,
		DisplayName:     mf.DisplayName,
		Description:     mf.Description,
		Category:        mf.Category,
		Tags:            mf.Tags,
		RequiredSecrets: mf.RequiredSecrets,
		RequiredTools:   mf.RequiredTools,
		HasSideEffects:  mf.HasSideEffects,
		SourceRef:       SourceRef{Type: "manifest_file", Path: path},
	}

	skillPath := filepath.Join(filepath.Dir(path), "SKILL.md")
	if content, err := os.ReadFile(skillPath); err == nil {
		desc.FullContent = string(content)
	}

	return desc, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ManifestWatcher hot-reloads manifest files on change, debounced, and
// invokes onChange with the rescanned descriptor set.
type ManifestWatcher struct {
	roots       []string
	pathListEnv string
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	onChange    func([]CapabilityDescriptor)
	done        chan struct{}
}

// NewManifestWatcher starts watching roots for CAPABILITY.yaml/.yml and
// SKILL.md changes, calling onChange with the full rescanned set no more often
// than once per debounce window (§6, default 500ms).
func NewManifestWatcher(roots []string, pathListEnv string, debounce time.Duration, onChange func([]CapabilityDescriptor)) (*ManifestWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("capability: fsnotify: %w", err)
	}

	for _, root := range roots {
		if err := w.Add(expandHome(root)); err != nil {
			slog.Warn("capability: watch root failed", "root", root, "error", err)
		}
	}

	mw := &ManifestWatcher{
		roots:       roots,
		pathListEnv: pathListEnv,
		debounce:    debounce,
		watcher:     w,
		onChange:    onChange,
		done:        make(chan struct{}),
	}
	go mw.run()
	return mw, nil
}

func (mw *ManifestWatcher) run() {
	var timer *time.Timer
	for {
		select {
		case <-mw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".yaml") && !strings.HasSuffix(event.Name, ".yml") && filepath.Base(event.Name) != "SKILL.md" {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(mw.debounce, mw.rescan)
		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("capability: manifest watch error", "error", err)
		}
	}
}

func (mw *ManifestWatcher) rescan() {
	descriptors, err := ScanManifests(mw.roots, mw.pathListEnv)
	if err != nil {
		slog.Warn("capability: manifest rescan failed", "error", err)
		return
	}
	mw.onChange(descriptors)
}

// Close stops the watcher.
func (mw *ManifestWatcher) Close() error {
	close(mw.done)
	return mw.watcher.Close()
}
