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

package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/pkg/errors"
)

var (
	// Operation arguments.
	toolFlag     = conf.NewStringFlag("tool", "Benchmark driver: benchbase or sysbench", "benchbase")
	workloadFlag = conf.NewStringFlag("workload", "Workload name", "tpcc")
	clusterFlag  = conf.NewStringFlag("cluster", "Target cluster, defaults to cluster assigned to workload", "")
	runTypeFlag  = conf.NewStringFlag("run_type", "Sysbench run type: "+strings.Join(benchmark.RunTypes(), ", "), "point-select")
	paramsFlag   = conf.NewStringFlag("params", "Extra benchmark driver parameters", "")
	waitFlag     = conf.NewBoolFlag("wait", "Wait for background benchmark launches to finish", false)
	configFlag   = conf.NewStringFlag("config", "Cluster configuration file, defaults to <workspace>/script/<cluster>/config.yaml", "")
	dumpDirFlag  = conf.NewStringFlag("dump_dir", "Dump directory, defaults to <dump_root>/<workload>", "")

	// Registry.
	workloadsFlag    = conf.NewSliceFlag("workloads", "Workload names", "tpcc", "tpch", "tatp", "smallbank", "sysbench", "ycsb")
	clustersFlag     = conf.NewSliceFlag("clusters", "Cluster names", "tidb-1", "tidb-2", "tidb-3")
	hostsFlag        = conf.NewSliceFlag("hosts", "Coordinator hosts, one per cluster", "tidb-pd-1", "tidb-pd-2", "tidb-pd-3")
	registryFileFlag = conf.NewStringFlag("registry_file", "YAML registry file, overrides workloads, clusters and hosts", "")

	// Execution.
	scriptHostFlag      = conf.NewStringFlag("script_host", "Host running lifecycle scripts over SSH, local when empty", "")
	sshKeyFlag          = conf.NewStringFlag("ssh_key", "Private key for script host, defaults to ~/.ssh/id_rsa", "")
	scriptDirFlag       = conf.NewStringFlag("script_dir", "Directory of lifecycle scripts", "/data1/workspace/ottertune-test/script")
	outputDirFlag       = conf.NewStringFlag("output_dir", "Directory of command output files", "/tmp/benchctl")
	continueOnErrorFlag = conf.NewBoolFlag("continue_on_error", "Log and ignore failures of drop and restart scripts", true)

	// Paths.
	workspaceFlag     = conf.NewStringFlag("workspace", "Workspace holding script/<cluster>/ configuration", "/data1/workspace/ottertune-test")
	dumpRootFlag      = conf.NewStringFlag("dump_root", "Parent directory of workload dumps", "/data1")
	dumpFileSizeFlag  = conf.NewStringFlag("dump_file_size", "Size of dump files, e.g. 256MiB", "256MiB")
	dumpThreadsFlag   = conf.NewIntFlag("dump_threads", "Dumpling threads", 16)
	checkpointDirFlag = conf.NewStringFlag("checkpoint_dir", "Directory of loader checkpoints", "/tmp")
	benchHomeFlag     = conf.NewStringFlag("bench_home", "Benchmark driver home", "/data1/workspace/benchbase/target/benchbase-2021-SNAPSHOT")
	resultsDirFlag    = conf.NewStringFlag("results_dir", "Archived results directory, defaults to <bench_home>/results", "")
	benchLogDirFlag   = conf.NewStringFlag("bench_log_dir", "Benchmark driver logs directory, defaults to <bench_home>/log", "")

	// Database.
	tidbPortFlag     = conf.NewIntFlag("tidb_port", "SQL port of coordinators", 4000)
	tidbUserFlag     = conf.NewStringFlag("tidb_user", "SQL user", "root")
	tidbPasswordFlag = conf.NewStringFlag("tidb_password", "SQL password", "")

	// Sysbench.
	tablesFlag    = conf.NewIntFlag("sysbench_tables", "Number of sysbench tables", 32)
	tableSizeFlag = conf.NewIntFlag("sysbench_table_size", "Rows per sysbench table", 10000000)
	threadsFlag   = conf.NewIntFlag("sysbench_threads", "Sysbench threads", 16)
	timeFlag      = conf.NewIntFlag("sysbench_time", "Sysbench run time in seconds", 300)

	// Restore.
	restoreCooldownFlag    = conf.NewDurationFlag("restore_cooldown", "Wait after restore", 30*time.Second)
	loadAttemptsFlag       = conf.NewIntFlag("load_attempts", "Loader attempts including the first one", 4)
	loadRetryDelayFlag     = conf.NewDurationFlag("load_retry_delay", "Delay between loader attempts", 0)
	failOnExhaustedRetries = conf.NewBoolFlag("fail_on_exhausted_load", "Fail when all loader attempts failed", false)

	// Campaigns.
	sweepValuesFlag   = conf.NewSliceFlag("sweep_values", "Values of swept variable, applied in order", "30", "15", "8", "4", "2", "1")
	sweepVariableFlag = conf.NewStringFlag("sweep_variable", "Global variable changed by sweep", "tidb_distsql_scan_concurrency")
	sweepSettleFlag   = conf.NewDurationFlag("sweep_settle", "Wait between variable change and run", 20*time.Second)
	sweepCooldownFlag = conf.NewDurationFlag("sweep_cooldown", "Wait between sweep runs", 40*time.Second)
	iterationsFlag    = conf.NewIntFlag("iterations", "Patch cycle iterations", 1)
	patchesFlag       = conf.NewSliceFlag("patches", "Server build archives applied by patch cycle",
		"/data1/workspace/tikv-server-master-old.tar.gz", "/data1/workspace/tikv-server-optimizer-2.tar.gz")
	patchClusterFlag  = conf.NewStringFlag("patch_cluster", "Cluster patched by patch cycle", "tidb-1")
	patchWorkloadFlag = conf.NewStringFlag("patch_workload", "BenchBase workload of patch cycle", "tpcc")
	patchWaitFlag     = conf.NewDurationFlag("patch_wait", "Wait after patch and after benchmark", 30*time.Second)
)

func sweepValues() ([]int, error) {
	values := []int{}
	for _, value := range sweepValuesFlag.Value() {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid sweep value %q", value)
		}
		values = append(values, parsed)
	}
	return values, nil
}

// loadAttempts refuses bounds below one, retries would not end otherwise.
func loadAttempts() (int, error) {
	attempts := loadAttemptsFlag.Value()
	if attempts < 1 {
		return 0, errors.Errorf("load_attempts must be at least 1, got %d", attempts)
	}
	return attempts, nil
}
