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

package lifecycle

import (
	"fmt"
	"sync"
)

// State of database instance on cluster.
type State int

const (
	// Absent means database was dropped or never created.
	Absent State = iota
	// Created means empty database exists.
	Created
	// Loading means bulk load is in progress.
	Loading
	// Ready means data is loaded.
	Ready
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Created:
		return "created"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type instanceKey struct {
	cluster  string
	workload string
}

// Tracker remembers last known state of database instances handled by this process.
type Tracker struct {
	sync.Mutex
	states map[instanceKey]State
}

// NewTracker returns empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{states: map[instanceKey]State{}}
}

// Set records state of instance.
func (t *Tracker) Set(cluster, workload string, state State) {
	t.Lock()
	defer t.Unlock()
	t.states[instanceKey{cluster, workload}] = state
}

// Get returns state of instance, Absent when unknown.
func (t *Tracker) Get(cluster, workload string) State {
	t.Lock()
	defer t.Unlock()
	return t.states[instanceKey{cluster, workload}]
}

// ClusterWiped marks every known instance of cluster as absent.
func (t *Tracker) ClusterWiped(cluster string) {
	t.Lock()
	defer t.Unlock()
	for key := range t.states {
		if key.cluster == cluster {
			t.states[key] = Absent
		}
	}
}
