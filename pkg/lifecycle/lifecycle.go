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

// Package lifecycle manages databases on benchmarked clusters.
//
// Drop wipes the whole cluster and starts it again, so every database of the cluster is
// gone afterwards. Manager does not lock anything: concurrent calls against the same
// cluster (or the same config file) are unsupported and must be serialized by the caller.
package lifecycle

import (
	"context"
	"fmt"
	"path"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/registry"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/YiqinXiong/ottertune-test/pkg/tidb"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Scripts used for cluster maintenance.
const (
	CleanDataScript    = "clean_tidb_data.sh"
	StartClusterScript = "start_cluster.sh"
	ReloadConfigScript = "reload_tidb_cnf.sh"
	ChangeConfigScript = "change_tidb_cnf.sh"
	CleanConfigScript  = "clean_tidb_cnf.sh"
)

// Config of Manager.
type Config struct {
	// Workspace holds script/<cluster>/config.yaml files.
	Workspace string
	// DumpRoot is parent directory of per workload dumps.
	DumpRoot string
	// SQL account used by dumpling.
	SQL tidb.Options
	// Dump file size and threads of dumpling.
	DumpFileSize string
	DumpThreads  int
}

// DefaultConfig returns lab paths.
func DefaultConfig() Config {
	return Config{
		Workspace:    "/data1/workspace/ottertune-test",
		DumpRoot:     "/data1",
		SQL:          tidb.DefaultOptions(),
		DumpFileSize: "256MiB",
		DumpThreads:  16,
	}
}

// Validate checks dumpling settings. File size takes bytefmt units, e.g. 256MiB or 1G.
func (c Config) Validate() error {
	size, err := bytefmt.ToBytes(c.DumpFileSize)
	if err != nil {
		return errors.Wrapf(err, "invalid dump file size %q", c.DumpFileSize)
	}
	if size == 0 {
		return errors.Errorf("dump file size must not be zero")
	}
	if c.DumpThreads < 1 {
		return errors.Errorf("number of dump threads must be positive, got %d", c.DumpThreads)
	}
	return nil
}

// Manager runs create, drop and configure operations on databases of clusters.
type Manager struct {
	registry *registry.Registry
	scripts  scripts.Runner
	files    scripts.Files
	dial     tidb.Dialer
	tracker  *Tracker
	config   Config
}

// NewManager returns Manager. Configuration backups are made with files on the host running scripts.
func NewManager(reg *registry.Registry, runner scripts.Runner, files scripts.Files, dial tidb.Dialer, config Config) *Manager {
	return &Manager{
		registry: reg,
		scripts:  runner,
		files:    files,
		dial:     dial,
		tracker:  NewTracker(),
		config:   config,
	}
}

// Registry returns registry used for resolution.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// Target resolves workload placement. Non empty cluster overrides the assignment of workload.
func (m *Manager) Target(workload, cluster string) (registry.Assignment, error) {
	assignment, err := m.registry.Resolve(workload)
	if err != nil {
		return registry.Assignment{}, err
	}
	if cluster == "" {
		return assignment, nil
	}

	host, err := m.registry.Host(cluster)
	if err != nil {
		return registry.Assignment{}, err
	}
	return registry.Assignment{Workload: workload, Cluster: cluster, Host: host}, nil
}

// Drop wipes data of cluster assigned to workload and starts the cluster again.
func (m *Manager) Drop(ctx context.Context, workload string, policy failures.Policy) error {
	assignment, err := m.registry.Resolve(workload)
	if err != nil {
		return err
	}
	return m.DropCluster(ctx, assignment.Cluster, policy)
}

// DropCluster wipes data of cluster and starts it again. Script failures are handled by policy,
// with ContinueOnError both scripts are always run.
func (m *Manager) DropCluster(ctx context.Context, cluster string, policy failures.Policy) error {
	if err := m.registry.ValidateCluster(cluster); err != nil {
		return err
	}

	log.Infof("dropping all data of cluster %s, databases of workloads %s are lost",
		cluster, strings.Join(m.registry.WorkloadsOn(cluster), ","))
	err := m.scripts.Run(ctx, CleanDataScript, cluster)
	if err := m.handleScriptErr(ctx, err, policy, "cleaning data of "+cluster); err != nil {
		return err
	}
	m.tracker.ClusterWiped(cluster)

	err = m.scripts.Run(ctx, StartClusterScript, cluster)
	return m.handleScriptErr(ctx, err, policy, "starting "+cluster)
}

// handleScriptErr applies policy to script failures. Cancellation is never swallowed.
func (m *Manager) handleScriptErr(ctx context.Context, err error, policy failures.Policy, what string) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), what)
	}
	return policy.Apply(err, what)
}

// Restart reloads configuration of cluster assigned to workload.
func (m *Manager) Restart(ctx context.Context, workload string, policy failures.Policy) error {
	assignment, err := m.registry.Resolve(workload)
	if err != nil {
		return err
	}
	err = m.scripts.Run(ctx, ReloadConfigScript, assignment.Cluster)
	return m.handleScriptErr(ctx, err, policy, "reloading "+assignment.Cluster)
}

// Create creates database named after workload unless it exists.
// Empty cluster means the cluster assigned to workload.
func (m *Manager) Create(ctx context.Context, workload, cluster string) error {
	assignment, err := m.Target(workload, cluster)
	if err != nil {
		return err
	}

	admin, err := m.dial(assignment.Host)
	if err != nil {
		return errors.Wrapf(err, "cannot connect to %s", assignment.Host)
	}
	defer admin.Close()

	if err := admin.CreateDatabase(ctx, workload); err != nil {
		return errors.Wrapf(err, "cannot create database %s on %s", workload, assignment.Cluster)
	}
	m.tracker.Set(assignment.Cluster, workload, Created)
	return nil
}

// ConfigPath returns default cluster configuration file.
func (m *Manager) ConfigPath(cluster string) string {
	return path.Join(m.config.Workspace, "script", cluster, "config.yaml")
}

// Configure backs up configuration file to .bak sibling and applies it to the cluster assigned
// to workload. Empty configPath means default configuration file of the cluster.
func (m *Manager) Configure(ctx context.Context, workload, configPath string) error {
	assignment, err := m.registry.Resolve(workload)
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = m.ConfigPath(assignment.Cluster)
	}

	// Backup is not atomic, last writer wins.
	if err := m.files.Copy(ctx, configPath, configPath+".bak"); err != nil {
		return errors.Wrap(err, "cannot back up configuration")
	}

	return m.scripts.Run(ctx, ChangeConfigScript, assignment.Cluster, configPath)
}

// CleanConfig resets configuration of cluster assigned to workload to defaults.
func (m *Manager) CleanConfig(ctx context.Context, workload string) error {
	assignment, err := m.registry.Resolve(workload)
	if err != nil {
		return err
	}
	if err := m.scripts.Run(ctx, CleanConfigScript, assignment.Cluster); err != nil {
		return err
	}
	log.Infof("configuration of %s reset to defaults", assignment.Cluster)
	return nil
}

// DumpDir returns directory holding dump of workload.
func (m *Manager) DumpDir(workload string) string {
	return path.Join(m.config.DumpRoot, workload)
}

// DumpCommand returns dumpling command exporting database of host to dir.
func (m *Manager) DumpCommand(host, dir string) string {
	return scripts.Join("tiup", "dumpling",
		"-u", m.config.SQL.User,
		"--host", host,
		"-P", fmt.Sprintf("%d", m.config.SQL.Port),
		"-F", m.config.DumpFileSize,
		"-t", fmt.Sprintf("%d", m.config.DumpThreads),
		"-o", dir,
	)
}

// Dump exports databases of cluster into dump directory of workload and returns that directory.
// Empty cluster means the cluster assigned to workload.
func (m *Manager) Dump(ctx context.Context, workload, cluster string) (string, error) {
	assignment, err := m.Target(workload, cluster)
	if err != nil {
		return "", err
	}

	dir := m.DumpDir(workload)
	log.Infof("dumping %s from %s to %s", workload, assignment.Cluster, dir)
	if err := m.scripts.RunCommand(ctx, m.DumpCommand(assignment.Host, dir)); err != nil {
		return "", errors.Wrapf(err, "cannot dump %s", workload)
	}
	return dir, nil
}

// SetState records state of database instance.
func (m *Manager) SetState(cluster, workload string, state State) {
	m.tracker.Set(cluster, workload, state)
}

// State returns last known state of database instance.
func (m *Manager) State(cluster, workload string) State {
	return m.tracker.Get(cluster, workload)
}
