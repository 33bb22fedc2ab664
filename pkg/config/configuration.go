// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/mobatch/pkg/common/moerr"
	"github.com/matrixorigin/mobatch/pkg/container/batch"
	"github.com/matrixorigin/mobatch/pkg/logutil"
)

const (
	defaultBatchRows = 8192
	defaultWorkers   = 4
)

// Config of mo-batch
type Config struct {
	Log      logutil.LogConfig `toml:"log"`
	MPool    MPoolConfig       `toml:"mpool"`
	Batch    BatchConfig       `toml:"batch"`
	Spill    SpillConfig       `toml:"spill"`
	Pipeline PipelineConfig    `toml:"pipeline"`
}

type MPoolConfig struct {
	// Capacity in bytes of the pool of each pipeline, 0 means unlimited.
	Capacity int64 `toml:"capacity"`
}

type BatchConfig struct {
	// Rows is the max row count of a batch emitted by an operator.  A row
	// selection addresses rows with 16 bits so it can not exceed 1 << 16.
	Rows int `toml:"rows"`
}

type SpillConfig struct {
	Enable bool `toml:"enable"`
	// Dir keeps spilled batches on disk, in memory when empty.
	Dir string `toml:"dir"`
	// Threshold in bytes of retained batches an operator keeps in memory
	// before spilling, 0 spills only when the pool runs out.
	Threshold int64 `toml:"threshold"`
}

type PipelineConfig struct {
	// Workers is the size of the pool pipelines run on.
	Workers int `toml:"workers"`
	// InputRows is the number of generated rows fed to each pipeline.
	InputRows int `toml:"input-rows"`
	// Keys is the number of distinct group keys in the generated input.
	Keys int `toml:"keys"`
	// FilterBelow keeps rows whose value is below it.
	FilterBelow int64 `toml:"filter-below"`
}

// Default returns a config every field of which is valid.
func Default() *Config {
	return &Config{
		Log: logutil.LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSize:    512,
			MaxDays:    7,
			MaxBackups: 3,
		},
		Batch: BatchConfig{Rows: defaultBatchRows},
		Spill: SpillConfig{Enable: true},
		Pipeline: PipelineConfig{
			Workers:     defaultWorkers,
			InputRows:   100000,
			Keys:        100,
			FilterBelow: 500,
		},
	}
}

// Load reads the toml file at path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, moerr.NewBadConfig(context.TODO(), "%s: %v", path, err)
	}
	return finish(cfg, md)
}

// Parse is Load for an in memory document.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, moerr.NewBadConfig(context.TODO(), "%v", err)
	}
	return finish(cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, moerr.NewBadConfig(context.TODO(), "unknown keys %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if err := cfg.Log.Validate(); err != nil {
		return err
	}
	if cfg.MPool.Capacity < 0 {
		return moerr.NewBadConfig(context.TODO(), "mpool capacity %d", cfg.MPool.Capacity)
	}
	if cfg.Batch.Rows <= 0 || cfg.Batch.Rows > batch.MaxSlots {
		return moerr.NewBadConfig(context.TODO(), "batch rows %d, expect 1 to %d", cfg.Batch.Rows, batch.MaxSlots)
	}
	if cfg.Spill.Dir != "" && !cfg.Spill.Enable {
		return moerr.NewBadConfig(context.TODO(), "spill dir %s set with spill disabled", cfg.Spill.Dir)
	}
	if cfg.Spill.Threshold < 0 {
		return moerr.NewBadConfig(context.TODO(), "spill threshold %d", cfg.Spill.Threshold)
	}
	if cfg.Pipeline.Workers <= 0 {
		return moerr.NewBadConfig(context.TODO(), "pipeline workers %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.InputRows < 0 {
		return moerr.NewBadConfig(context.TODO(), "pipeline input rows %d", cfg.Pipeline.InputRows)
	}
	if cfg.Pipeline.Keys <= 0 {
		return moerr.NewBadConfig(context.TODO(), "pipeline keys %d", cfg.Pipeline.Keys)
	}
	return nil
}
