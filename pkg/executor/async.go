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
	"os"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/executor/command"
	errcollection "github.com/YiqinXiong/ottertune-test/pkg/utils/err_collection"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Async is an executor which starts commands through given command factory
// and tracks them in the background.
type Async struct {
	name       string
	address    string
	outputDir  string
	cmdFactory func() command.Command
}

// NewAsync returns a Async instance.
// Output files of commands are created in outputDir (temporary directory when empty).
func NewAsync(name, address, outputDir string, cmdFactory func() command.Command) Async {
	return Async{
		name:       name,
		address:    address,
		outputDir:  outputDir,
		cmdFactory: cmdFactory,
	}
}

// Name returns user-friendly name of executor.
func (a Async) Name() string {
	return a.name
}

// Execute runs the command given as input.
// Returned TaskHandle is able to stop & monitor the provisioned process.
func (a Async) Execute(command string) (TaskHandle, error) {
	log.Debugf("%s: starting %q", a.name, command)

	stdoutFile, stderrFile, err := createExecutorOutputFiles(command, a.name, a.outputDir)
	if err != nil {
		return nil, err
	}

	log.Debugf("%s: created output files: stdout %q, stderr %q", a.name, stdoutFile.Name(), stderrFile.Name())

	cmd := a.cmdFactory()
	if err := cmd.Start(command, stdoutFile, stderrFile); err != nil {
		stdoutFile.Close()
		stderrFile.Close()
		return nil, errors.Wrapf(err, "%s: cannot start %q", a.name, command)
	}

	// Wait End channel is for checking the status of the Wait. If this channel is closed,
	// it means that the wait is completed (either with error or not)
	// This channel will not be used for passing any message.
	waitEndChannel := make(chan struct{})
	handle := newAsyncTaskHandle(cmd, stdoutFile, stderrFile, a.address, waitEndChannel)

	// Wait for task in go routine.
	go func() {
		defer close(waitEndChannel)

		if err := cmd.Wait(); err != nil {
			// Happens when connection or process state is lost. Task is treated as failed.
			log.Errorf("%s: waiting for %q failed: %v", a.name, command, err)
			handle.waitErr = err
		}

		log.Debugf("%s: ended %q with output in %q and %q", a.name, command, stdoutFile.Name(), stderrFile.Name())
	}()

	return handle, nil
}

const killTimeout = 5 * time.Second

// asyncTaskHandle implements TaskHandle interface.
type asyncTaskHandle struct {
	cmdHandler     command.Command
	stdoutFile     *os.File
	stderrFile     *os.File
	address        string
	waitEndChannel chan struct{}
	// Written before waitEndChannel is closed.
	waitErr error
}

func newAsyncTaskHandle(cmdHandler command.Command, stdoutFile, stderrFile *os.File, address string,
	waitEndChannel chan struct{}) *asyncTaskHandle {
	return &asyncTaskHandle{
		cmdHandler:     cmdHandler,
		stdoutFile:     stdoutFile,
		stderrFile:     stderrFile,
		address:        address,
		waitEndChannel: waitEndChannel,
	}
}

// isTerminated checks if waitEndChannel is closed. If it is closed, it means
// that wait ended and task is in terminated state.
func (th *asyncTaskHandle) isTerminated() bool {
	select {
	case <-th.waitEndChannel:
		return true
	default:
		return false
	}
}

// Stop terminates the task.
func (th *asyncTaskHandle) Stop() error {
	if th.isTerminated() {
		return nil
	}

	err := th.cmdHandler.Kill()
	if err != nil && !th.isTerminated() {
		log.Errorf("cannot kill task on %q: %v", th.address, err)
		return errors.Wrapf(err, "cannot kill task on %q", th.address)
	}

	// Checking if kill was successful.
	if !th.Wait(killTimeout) {
		return errors.Errorf("cannot terminate task on %q", th.address)
	}

	return nil
}

// Status returns a state of the task.
func (th *asyncTaskHandle) Status() TaskState {
	if !th.isTerminated() {
		return RUNNING
	}
	return TERMINATED
}

// ExitCode returns a exitCode. If task is not terminated it returns error.
func (th *asyncTaskHandle) ExitCode() (int, error) {
	if !th.isTerminated() {
		return -1, errors.New("task is not terminated")
	}
	if th.waitErr != nil {
		return -1, errors.Wrap(th.waitErr, "exit code is unknown")
	}
	return th.cmdHandler.ExitCode(), nil
}

// StdoutFile returns a file handle for file to the task's stdout file.
func (th *asyncTaskHandle) StdoutFile() (*os.File, error) {
	return openOutputFile(th.stdoutFile)
}

// StderrFile returns a file handle for file to the task's stderr file.
func (th *asyncTaskHandle) StderrFile() (*os.File, error) {
	return openOutputFile(th.stderrFile)
}

func openOutputFile(file *os.File) (*os.File, error) {
	if _, err := os.Stat(file.Name()); err != nil {
		return nil, errors.Wrapf(err, "output file %q is not available", file.Name())
	}
	return os.Open(file.Name())
}

// Clean closes files to which stdout and stderr of executed command were written.
func (th *asyncTaskHandle) Clean() error {
	var errs errcollection.ErrorCollection
	errs.Add(th.stdoutFile.Close())
	errs.Add(th.stderrFile.Close())
	return errs.GetErrIfAny()
}

// EraseOutput removes task's stdout & stderr files together with their directory.
func (th *asyncTaskHandle) EraseOutput() error {
	outputDir := dirOf(th.stdoutFile.Name())
	return errors.Wrapf(os.RemoveAll(outputDir), "cannot remove %q", outputDir)
}

// Wait waits for the command to finish with the given timeout time.
// It returns true if task is terminated.
func (th *asyncTaskHandle) Wait(timeout time.Duration) bool {
	if th.isTerminated() {
		return true
	}

	var timeoutChannel <-chan time.Time
	if timeout != 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutChannel = timer.C
	}

	select {
	case <-th.waitEndChannel:
		return true
	case <-timeoutChannel:
		return false
	}
}

// Address returns address where task was located.
func (th *asyncTaskHandle) Address() string {
	return th.address
}
