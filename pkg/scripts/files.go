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

package scripts

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/YiqinXiong/ottertune-test/pkg/executor"
	"github.com/YiqinXiong/ottertune-test/pkg/failures"
	"github.com/YiqinXiong/ottertune-test/pkg/utils/fs"
	"github.com/pkg/errors"
)

// Files reads and changes files on the host which runs scripts and drivers.
type Files interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile replaces content of file creating parent directories. Mode of existing file is kept.
	WriteFile(ctx context.Context, path string, data []byte) error
	// Exists reports whether regular file exists.
	Exists(ctx context.Context, path string) (bool, error)
	// Remove removes file and returns true when something was removed.
	Remove(ctx context.Context, path string) (bool, error)
	// Copy copies src to dst creating parent directories of dst.
	Copy(ctx context.Context, src, dst string) error
}

// LocalFiles accesses files of the machine running benchctl.
type LocalFiles struct{}

// ReadFile implements Files.
func (LocalFiles) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := ioutil.ReadFile(path)
	return data, errors.Wrapf(err, "cannot read %q", path)
}

// WriteFile implements Files.
func (LocalFiles) WriteFile(_ context.Context, path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "cannot create directory for %q", path)
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, mode), "cannot write %q", path)
}

// Exists implements Files.
func (LocalFiles) Exists(_ context.Context, path string) (bool, error) {
	return fs.FileExists(path)
}

// Remove implements Files.
func (LocalFiles) Remove(_ context.Context, path string) (bool, error) {
	return fs.RemoveIfExists(path)
}

// Copy implements Files.
func (LocalFiles) Copy(_ context.Context, src, dst string) error {
	return fs.CopyFile(src, dst)
}

const (
	presentMarker = "present"
	removedMarker = "removed"
)

// output runs command and returns its stdout together with exit code.
func (s *Shell) output(ctx context.Context, command string) ([]byte, int, error) {
	handle, exitCode, err := executor.ExecuteAndWait(ctx, s.executor, command)
	if err != nil {
		return nil, -1, errors.Wrapf(err, "cannot run %q", command)
	}
	defer handle.EraseOutput()

	stdout, err := handle.StdoutFile()
	if err != nil {
		return nil, exitCode, err
	}
	defer stdout.Close()

	data, err := ioutil.ReadAll(stdout)
	if err != nil {
		return nil, exitCode, errors.Wrapf(err, "cannot read output of %q", command)
	}
	return data, exitCode, nil
}

// check runs command and turns non zero exit code into *failures.ScriptError.
func (s *Shell) check(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := strings.Join(append([]string{name}, args...), " ")
	data, exitCode, err := s.output(ctx, command)
	if err != nil {
		return nil, err
	}
	if exitCode != 0 {
		return nil, &failures.ScriptError{Script: strings.Fields(name)[0], Args: args, Host: s.executor.Name(), ExitCode: exitCode}
	}
	return data, nil
}

// ReadFile implements Files with cat.
func (s *Shell) ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := s.check(ctx, "cat", Quote(path))
	return data, errors.Wrapf(err, "cannot read %q on %s", path, s.executor.Name())
}

// WriteFile implements Files. Content is passed inline, redirection keeps mode of existing file.
func (s *Shell) WriteFile(ctx context.Context, path string, data []byte) error {
	_, err := s.check(ctx, "mkdir -p", Quote(filepath.Dir(path)), "&&", "printf %s", Quote(string(data)), ">", Quote(path))
	return errors.Wrapf(err, "cannot write %q on %s", path, s.executor.Name())
}

// Exists implements Files with test -f.
func (s *Shell) Exists(ctx context.Context, path string) (bool, error) {
	command := "test -f " + Quote(path)
	_, exitCode, err := s.output(ctx, command)
	switch {
	case err != nil:
		return false, err
	case exitCode == 0:
		return true, nil
	case exitCode == 1:
		return false, nil
	}
	return false, errors.Wrapf(&failures.ScriptError{Script: "test", Args: []string{"-f", path}, Host: s.executor.Name(), ExitCode: exitCode},
		"cannot check %q on %s", path, s.executor.Name())
}

// Remove implements Files with rm -f, reporting whether the file was there.
func (s *Shell) Remove(ctx context.Context, path string) (bool, error) {
	quoted := Quote(path)
	data, err := s.check(ctx, "if [ -e "+quoted+" ]; then rm -f "+quoted+" && echo "+removedMarker+";", "fi")
	if err != nil {
		return false, errors.Wrapf(err, "cannot remove %q on %s", path, s.executor.Name())
	}
	return strings.TrimSpace(string(data)) == removedMarker, nil
}

// Copy implements Files with cp.
func (s *Shell) Copy(ctx context.Context, src, dst string) error {
	_, err := s.check(ctx, "mkdir -p", Quote(filepath.Dir(dst)), "&&", "cp", Quote(src), Quote(dst))
	return errors.Wrapf(err, "cannot copy %q to %q on %s", src, dst, s.executor.Name())
}
