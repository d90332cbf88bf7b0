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

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader loads and decodes a turncore YAML configuration file, applying
// environment-variable expansion before unmarshalling.
//
// Adapted from the teacher's pkg/config/koanf_loader.go, trimmed to the
// file backend: this core has no distributed-config requirement (§6), so
// the consul/etcd/zookeeper providers the teacher supports are dropped.
type Loader struct {
	path string
}

// NewLoader constructs a Loader for the YAML file at path.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path is required")
	}
	return &Loader{path: path}, nil
}

// Load reads, expands, and decodes the config file, then applies defaults
// and validates the result.
func (l *Loader) Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", l.path, err)
	}

	expanded, ok := expandEnvVarsInData(k.Raw()).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config: unexpected structure after env expansion")
	}

	k = koanf.New(".")
	if err := k.Load(confmap.Provider(expanded, "."), nil); err != nil {
		return nil, fmt.Errorf("config: reload expanded config: %w", err)
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Load is a convenience wrapper around NewLoader(path).Load().
func Load(path string) (*Config, error) {
	loader, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
