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

package executor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// taskHandleStopper keeps detached tasks which should not outlive interrupted process.
type taskHandleStopper struct {
	sync.Mutex
	taskHandles []TaskHandle
}

var globalTaskHandleStopper = &taskHandleStopper{}

// Register adds handle to tasks stopped on interrupt.
func Register(t TaskHandle) {
	globalTaskHandleStopper.register(t)
}

// InterruptContext returns context cancelled on SIGINT or SIGTERM. On signal all registered task
// handles are stopped. Returned function releases signal handler.
func InterruptContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	logrus.Debugf("clean: interrupt handle initialized")

	go func() {
		select {
		case sig := <-c:
			logrus.Warnf("clean: received %v, interrupting", sig)
			cancel()
			globalTaskHandleStopper.stopAllTaskHandles()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(c)
		cancel()
	}
}

// StopAllTaskHandles stops every registered task in reverse order of registration.
func StopAllTaskHandles() {
	globalTaskHandleStopper.stopAllTaskHandles()
}

func (ths *taskHandleStopper) stopAllTaskHandles() {
	ths.Lock()
	defer ths.Unlock()
	for i := len(ths.taskHandles) - 1; i >= 0; i-- {
		taskHandle := ths.taskHandles[i]
		logrus.Debugf("clean: stopping task on %q", taskHandle.Address())
		if err := taskHandle.Stop(); err != nil {
			logrus.Errorf("clean: cannot stop task on %q: %v", taskHandle.Address(), err)
		}
	}
	ths.taskHandles = nil
}

func (ths *taskHandleStopper) register(t TaskHandle) {
	ths.Lock()
	defer ths.Unlock()
	ths.taskHandles = append(ths.taskHandles, t)
}
