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

package command

import "io"

// Command is a process started by an executor.
type Command interface {
	// Start starts command with given output writers and returns immediately.
	Start(command string, stdout io.Writer, stderr io.Writer) error
	// Wait waits synchronously for command termination.
	Wait() error
	// ExitCode returns exit code. It is only allowed to use this method when
	// command is terminated.
	ExitCode() int
	// Kill sends SIGKILL to command.
	Kill() error
}
