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

// Package scripts runs cluster maintenance shell scripts and ad hoc shell commands.
package scripts

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Runner runs external commands synchronously. Non zero exit code results in *failures.ScriptError.
type Runner interface {
	// Run runs script from script directory with given arguments.
	Run(ctx context.Context, script string, args ...string) error
	// RunCommand runs arbitrary shell command.
	RunCommand(ctx context.Context, command string) error
	// Launch starts shell command without waiting for it.
	Launch(command string) (executor.TaskHandle, error)
}

// Shell runs scripts as `setsid -w sh <scriptDir>/<script> args...` on given executor.
// Scripts run in their own session so cluster tooling they spawn survives the ssh session,
// -w keeps the call synchronous and passes the exit code of the script.
type Shell struct {
	executor  executor.Executor
	scriptDir string
}

// NewShell returns Shell using scripts from scriptDir.
func NewShell(exec executor.Executor, scriptDir string) *Shell {
	return &Shell{executor: exec, scriptDir: scriptDir}
}

// ScriptCommand builds command line for script.
func (s *Shell) ScriptCommand(script string, args ...string) string {
	parts := []string{"setsid", "-w", "sh", Quote(path.Join(s.scriptDir, script))}
	for _, arg := range args {
		parts = append(parts, Quote(arg))
	}
	return strings.Join(parts, " ")
}

// Run runs script and waits for it.
func (s *Shell) Run(ctx context.Context, script string, args ...string) error {
	command := s.ScriptCommand(script, args...)
	log.Infof("running %s on %s", command, s.executor.Name())

	handle, exitCode, err := executor.ExecuteAndWait(ctx, s.executor, command)
	if err != nil {
		return errors.Wrapf(err, "cannot run %s", script)
	}
	if exitCode != 0 {
		return &failures.ScriptError{Script: script, Args: args, Host: handle.Address(), ExitCode: exitCode}
	}
	return nil
}

// RunCommand runs shell command and waits for it.
func (s *Shell) RunCommand(ctx context.Context, command string) error {
	log.Infof("running %s on %s", command, s.executor.Name())

	handle, exitCode, err := executor.ExecuteAndWait(ctx, s.executor, command)
	if err != nil {
		return errors.Wrapf(err, "cannot run %q", command)
	}
	if exitCode != 0 {
		fields := strings.Fields(command)
		return &failures.ScriptError{Script: fields[0], Args: fields[1:], Host: handle.Address(), ExitCode: exitCode}
	}
	return nil
}

// Launch starts shell command in background. Handle is registered to be stopped on interrupt.
func (s *Shell) Launch(command string) (executor.TaskHandle, error) {
	log.Infof("launching %s on %s", command, s.executor.Name())

	handle, err := s.executor.Execute(command)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot launch %q", command)
	}
	executor.Register(handle)
	return handle, nil
}

var safeArgument = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote quotes argument for sh when needed.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if safeArgument.MatchString(arg) {
		return arg
	}
	return "'" + strings.Replace(arg, "'", `'"'"'`, -1) + "'"
}

// Join quotes and joins arguments into command line.
func Join(args ...string) string {
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		quoted = append(quoted, Quote(arg))
	}
	return strings.Join(quoted, " ")
}
