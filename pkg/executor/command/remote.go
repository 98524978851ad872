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
	"fmt"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// SSHConfig with clientConfig, host and port to connect.
type SSHConfig struct {
	ClientConfig *ssh.ClientConfig
	Host         string
	Port         int
}

// Remote runs command in ssh session.
type Remote struct {
	sshConfig  SSHConfig
	connection *ssh.Client
	session    *ssh.Session
	exitCode   int
}

// NewRemote returns a Remote instance.
func NewRemote(sshConfig SSHConfig) *Remote {
	return &Remote{
		sshConfig: sshConfig,
	}
}

// Start runs the command given as input.
func (r *Remote) Start(command string, stdout io.Writer, stderr io.Writer) error {
	connection, err := ssh.Dial(
		"tcp",
		fmt.Sprintf("%s:%d", r.sshConfig.Host, r.sshConfig.Port),
		r.sshConfig.ClientConfig,
	)
	if err != nil {
		return errors.Wrapf(err, "cannot connect to %s:%d", r.sshConfig.Host, r.sshConfig.Port)
	}
	r.connection = connection

	r.session, err = connection.NewSession()
	if err != nil {
		connection.Close()
		return errors.Wrapf(err, "cannot open session on %s", r.sshConfig.Host)
	}

	terminal := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// Pseudo terminal makes remote processes die together with session.
	if err := r.session.RequestPty("xterm", 80, 40, terminal); err != nil {
		r.close()
		return errors.Wrap(err, "cannot request pty")
	}

	r.session.Stdout = stdout
	r.session.Stderr = stderr

	if err := r.session.Start(command); err != nil {
		r.close()
		return errors.Wrapf(err, "cannot start %q on %s", command, r.sshConfig.Host)
	}
	return nil
}

// Wait waits synchronously for task.
func (r *Remote) Wait() error {
	defer r.close()

	err := r.session.Wait()
	if err == nil {
		r.exitCode = 0
		return nil
	}

	exitError, ok := err.(*ssh.ExitError)
	if !ok {
		return err
	}

	r.exitCode = exitError.Waitmsg.ExitStatus()
	return nil
}

func (r *Remote) close() {
	if r.session != nil {
		r.session.Close()
	}
	if r.connection != nil {
		r.connection.Close()
	}
}

// ExitCode returns ExitCode. It is only allowed to use this method when
// task is terminated.
func (r *Remote) ExitCode() int {
	return r.exitCode
}

// Kill sends SIGKILL signal to task.
func (r *Remote) Kill() error {
	return r.session.Signal(ssh.SIGKILL)
}
