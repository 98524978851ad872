// Copyright (c) 2017 Intel Corporation
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

package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/pkg/errors"
)

// Phase of benchmark.
type Phase string

const (
	// LoadPhase creates schema and populates data.
	LoadPhase Phase = "load"
	// RunPhase executes workload.
	RunPhase Phase = "run"
)

// ArchiveTimeFormat is the timestamp layout in archived result names.
const ArchiveTimeFormat = "2006-01-02_15-04-05"

// Run is a record of benchmark invocation. It is not modified after it is returned.
type Run struct {
	ID       string
	Phase    Phase
	Tool     Tool
	Workload string
	Cluster  string
	Host     string
	RunType  string
	Params   []string
	Command  string
	// ConfigPath and LogPath are the live files of the driver.
	ConfigPath string
	LogPath    string
	// Archived copies, empty for detached runs.
	ArchivedConfig string
	ArchivedLog    string
	Timestamp      time.Time
	Detached       bool
	Summary        *Summary
	// Handle of detached run. Nil for synchronous runs.
	Handle executor.TaskHandle
}

// ArchiveNames returns archived config and log paths: {workload}_{timestamp}.{runType}.{config|log}.
// When files with that timestamp exist, a counter is appended to the timestamp.
func ArchiveNames(ctx context.Context, files scripts.Files, resultsDir, workload, runType string, timestamp time.Time) (configPath, logPath string, err error) {
	stamp := timestamp.Format(ArchiveTimeFormat)
	for i := 0; ; i++ {
		name := stamp
		if i > 0 {
			name = fmt.Sprintf("%s-%d", stamp, i)
		}
		base := filepath.Join(resultsDir, fmt.Sprintf("%s_%s.%s", workload, name, runType))
		configPath, logPath = base+".config", base+".log"

		configExists, err := files.Exists(ctx, configPath)
		if err != nil {
			return "", "", err
		}
		logExists, err := files.Exists(ctx, logPath)
		if err != nil {
			return "", "", err
		}
		if !configExists && !logExists {
			return configPath, logPath, nil
		}
	}
}

// archive copies live config and log of run into results directory on the host running the driver.
func archive(ctx context.Context, files scripts.Files, resultsDir string, run *Run) error {
	configPath, logPath, err := ArchiveNames(ctx, files, resultsDir, run.Workload, run.RunType, run.Timestamp)
	if err != nil {
		return err
	}
	if err := files.Copy(ctx, run.ConfigPath, configPath); err != nil {
		return errors.Wrap(err, "cannot archive run configuration")
	}
	if err := files.Copy(ctx, run.LogPath, logPath); err != nil {
		return errors.Wrap(err, "cannot archive run log")
	}
	run.ArchivedConfig = configPath
	run.ArchivedLog = logPath
	return nil
}
