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

// Package registry resolves workloads to the clusters they are benchmarked on.
//
// Assignment starts from the position of workload in the workload list modulo number of
// clusters, but it is frozen into an explicit map when registry is built. Explicit
// assignments from configuration always win, so adding clusters to a configuration which
// lists its assignments never moves existing workloads.
package registry

import (
	"io/ioutil"

	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Cluster is one deployed database under test with its coordinator host.
type Cluster struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
}

// Config is the registry configuration fixed at startup.
type Config struct {
	Workloads []string  `yaml:"workloads"`
	Clusters  []Cluster `yaml:"clusters"`
	// Assignments maps workload to cluster name and overrides positional assignment.
	Assignments map[string]string `yaml:"assignments,omitempty"`
}

// Assignment is a resolved workload placement.
type Assignment struct {
	Workload string
	Cluster  string
	Host     string
}

// DefaultConfig returns the lab setup: six workloads spread over three TiDB clusters.
func DefaultConfig() Config {
	config, _ := NewConfig(
		[]string{"tpcc", "tpch", "tatp", "smallbank", "sysbench", "ycsb"},
		[]string{"tidb-1", "tidb-2", "tidb-3"},
		[]string{"tidb-pd-1", "tidb-pd-2", "tidb-pd-3"},
	)
	return config
}

// NewConfig builds configuration from parallel cluster and host lists.
func NewConfig(workloads, clusters, hosts []string) (Config, error) {
	if len(clusters) != len(hosts) {
		return Config{}, errors.Errorf("got %d clusters but %d hosts", len(clusters), len(hosts))
	}
	config := Config{Workloads: append([]string{}, workloads...)}
	for i := range clusters {
		config.Clusters = append(config.Clusters, Cluster{Name: clusters[i], Host: hosts[i]})
	}
	return config, nil
}

// LoadFile reads YAML configuration.
func LoadFile(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "cannot read registry file %q", path)
	}
	config := Config{}
	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return Config{}, errors.Wrapf(err, "cannot parse registry file %q", path)
	}
	return config, nil
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	workloads   []string
	clusters    []Cluster
	hosts       map[string]string
	assignments map[string]string
}

// New validates configuration and freezes workload assignments.
func New(config Config) (*Registry, error) {
	if len(config.Workloads) == 0 {
		return nil, errors.New("registry needs at least one workload")
	}
	if len(config.Clusters) == 0 {
		return nil, errors.New("registry needs at least one cluster")
	}

	r := &Registry{
		workloads:   append([]string{}, config.Workloads...),
		clusters:    append([]Cluster{}, config.Clusters...),
		hosts:       map[string]string{},
		assignments: map[string]string{},
	}

	for _, cluster := range r.clusters {
		if cluster.Name == "" || cluster.Host == "" {
			return nil, errors.Errorf("cluster %+v needs both name and host", cluster)
		}
		if _, ok := r.hosts[cluster.Name]; ok {
			return nil, errors.Errorf("cluster %q defined twice", cluster.Name)
		}
		r.hosts[cluster.Name] = cluster.Host
	}

	for index, workload := range r.workloads {
		if workload == "" {
			return nil, errors.Errorf("workload at position %d has no name", index)
		}
		if _, ok := r.assignments[workload]; ok {
			return nil, errors.Errorf("workload %q defined twice", workload)
		}
		r.assignments[workload] = r.clusters[index%len(r.clusters)].Name
	}

	for workload, cluster := range config.Assignments {
		if _, ok := r.assignments[workload]; !ok {
			return nil, errors.Wrap(failures.UnsupportedWorkload(workload), "assignment refers unknown workload")
		}
		if _, ok := r.hosts[cluster]; !ok {
			return nil, errors.Wrap(failures.UnsupportedCluster(cluster), "assignment refers unknown cluster")
		}
		r.assignments[workload] = cluster
	}

	return r, nil
}

// Resolve returns cluster and coordinator host of workload.
func (r *Registry) Resolve(workload string) (Assignment, error) {
	cluster, ok := r.assignments[workload]
	if !ok {
		return Assignment{}, failures.UnsupportedWorkload(workload)
	}
	return Assignment{Workload: workload, Cluster: cluster, Host: r.hosts[cluster]}, nil
}

// ValidateCluster fails with ErrUnsupportedCluster for unknown cluster.
func (r *Registry) ValidateCluster(cluster string) error {
	if _, ok := r.hosts[cluster]; !ok {
		return failures.UnsupportedCluster(cluster)
	}
	return nil
}

// Host returns coordinator host of cluster.
func (r *Registry) Host(cluster string) (string, error) {
	host, ok := r.hosts[cluster]
	if !ok {
		return "", failures.UnsupportedCluster(cluster)
	}
	return host, nil
}

// Workloads returns known workloads in configuration order.
func (r *Registry) Workloads() []string {
	return append([]string{}, r.workloads...)
}

// Clusters returns known clusters in configuration order.
func (r *Registry) Clusters() []Cluster {
	return append([]Cluster{}, r.clusters...)
}

// WorkloadsOn returns workloads assigned to cluster in configuration order.
func (r *Registry) WorkloadsOn(cluster string) []string {
	workloads := []string{}
	for _, workload := range r.workloads {
		if r.assignments[workload] == cluster {
			workloads = append(workloads, workload)
		}
	}
	return workloads
}
