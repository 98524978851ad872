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
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const waitPollInterval = 100 * time.Millisecond

// WaitContext blocks until task terminates or context is done.
// On cancellation the task is stopped and context error is returned.
func WaitContext(ctx context.Context, handle TaskHandle) error {
	for {
		select {
		case <-ctx.Done():
			log.Debugf("wait for task on %q interrupted: %v", handle.Address(), ctx.Err())
			if err := handle.Stop(); err != nil {
				return errors.Wrapf(err, "cannot stop task after %v", ctx.Err())
			}
			return ctx.Err()
		default:
		}

		if handle.Wait(waitPollInterval) {
			return nil
		}
	}
}

// ExecuteAndWait runs command synchronously and returns its exit code. Output files of the
// task are closed afterwards, handle stays valid for reading them.
// Error is returned only when command cannot be run or waited for.
func ExecuteAndWait(ctx context.Context, executor Executor, command string) (TaskHandle, int, error) {
	handle, err := executor.Execute(command)
	if err != nil {
		return nil, -1, err
	}
	defer handle.Clean()

	if err := WaitContext(ctx, handle); err != nil {
		return handle, -1, err
	}

	exitCode, err := handle.ExitCode()
	if err != nil {
		LogUnsucessfulExecution(command, executor.Name(), handle)
		return handle, -1, errors.Wrapf(err, "task %q launched on %q failed", command, executor.Name())
	}

	if exitCode != 0 {
		LogUnsucessfulExecution(command, executor.Name(), handle)
	} else {
		LogSuccessfulExecution(command, executor.Name(), handle)
	}
	return handle, exitCode, nil
}
