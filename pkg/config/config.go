/*
Copyright 2024 The Tidemark Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the pipeline configuration file consumed by the CLI
// harness. The window section is handed verbatim to window.SpecFromConfig;
// this package knows nothing about windowing semantics.
package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PipelineConfig is the on-disk pipeline configuration.
type PipelineConfig struct {
	conf *pipeline
	lock *sync.RWMutex
}

type pipeline struct {
	// Window is the flat window configuration (type, size, slide,
	// allowed_lateness, time_field).
	Window map[string]string
}

// GetWindow returns a copy of the window section.
func (p *PipelineConfig) GetWindow() map[string]string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	cfg := make(map[string]string, len(p.conf.Window))
	for k, v := range p.conf.Window {
		cfg[k] = v
	}
	return cfg
}

// Load reads the YAML pipeline configuration at path and keeps it fresh:
// edits to the file are re-read in place, and onErrorReloading is invoked
// when a reload fails. Environment variables prefixed with TIDEMARK_
// override file values.
func Load(path string, onErrorReloading func(error)) (*PipelineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tidemark")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration file. %w", err)
	}
	p := &PipelineConfig{
		lock: new(sync.RWMutex),
	}
	conf := &pipeline{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	p.conf = conf
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		cf := &pipeline{}
		if err := v.Unmarshal(cf); err != nil {
			onErrorReloading(err)
			return
		}
		p.lock.Lock()
		defer p.lock.Unlock()
		p.conf = cf
	})
	return p, nil
}
