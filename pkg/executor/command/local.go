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

import (
	"io"
	"os/exec"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// Local runs command in local shell.
type Local struct {
	cmd *exec.Cmd
}

// NewLocal returns a Local instance.
func NewLocal() *Local {
	return &Local{}
}

// Start starts the command.
func (l *Local) Start(command string, stdout io.Writer, stderr io.Writer) error {
	l.cmd = exec.Command("sh", "-c", command)
	// It is important to set additional Process Group ID for parent process and his children
	// to have ability to kill all the children processes.
	l.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	l.cmd.Stdout = stdout
	l.cmd.Stderr = stderr

	return l.cmd.Start()
}

// Wait waits synchronously for task.
func (l *Local) Wait() error {
	// NOTE: Wait() returns an error also for non zero exit codes. We grab the process
	// state in any case, so only non exit errors matter here.
	if err := l.cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return err
		}
	}
	return nil
}

func (l *Local) getPid() int {
	return l.cmd.Process.Pid
}

// ExitCode returns ExitCode. It is only allowed to use this method when
// task is terminated.
func (l *Local) ExitCode() int {
	status := l.cmd.ProcessState.Sys().(syscall.WaitStatus)
	if status.Signaled() {
		// Follow shell convention for processes killed by signal.
		return 128 + int(status.Signal())
	}
	return status.ExitStatus()
}

// Kill sends SIGKILL signal to task.
func (l *Local) Kill() error {
	// We signal the entire process group.
	// The kill syscall interprets a negated PID N as the process group N belongs to.
	log.Debug("Sending ", syscall.SIGKILL, " to PID ", -l.getPid())
	return syscall.Kill(-l.getPid(), syscall.SIGKILL)
}
