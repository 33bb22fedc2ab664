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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matrixorigin/mobatch/pkg/config"
	"github.com/matrixorigin/mobatch/pkg/logutil"
)

var (
	configFile = flag.String("cfg", "", "toml configuration, built in defaults when empty")
	logLevel   = flag.String("log-level", "", "overrides the log level of the configuration")
)

func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return config.Default(), nil
	}
	return config.Load(*configFile)
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger, err := logutil.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("mo-batch started",
		zap.String("config", *configFile),
		zap.Int("workers", cfg.Pipeline.Workers),
		zap.Int("batch-rows", cfg.Batch.Rows))
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("mo-batch failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("mo-batch done")
}
