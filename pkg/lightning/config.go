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

package lightning

import (
	"context"

	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	mydumperSection   = "mydumper"
	dataSourceDirKey  = "data-source-dir"
	schemaFileSuffix  = "-schema-create.sql"
	checkpointPostfix = "_lightning_checkpoint.pb"
)

// SetDataSourceDir points [mydumper] data-source-dir of loader configuration to dumpDir.
// Other keys are preserved, comments and ordering are not.
func SetDataSourceDir(data []byte, dumpDir string) ([]byte, error) {
	document := map[string]interface{}{}
	if err := toml.Unmarshal(data, &document); err != nil {
		return nil, errors.Wrap(err, "cannot parse loader configuration")
	}

	section, ok := document[mydumperSection].(map[string]interface{})
	if !ok {
		if _, exists := document[mydumperSection]; exists {
			return nil, errors.Errorf("%s of loader configuration is not a table", mydumperSection)
		}
		section = map[string]interface{}{}
	}
	section[dataSourceDirKey] = dumpDir
	document[mydumperSection] = section

	output, err := toml.Marshal(document)
	return output, errors.Wrap(err, "cannot encode loader configuration")
}

// DataSourceDir returns [mydumper] data-source-dir of loader configuration.
func DataSourceDir(data []byte) (string, error) {
	var document struct {
		Mydumper struct {
			DataSourceDir string `toml:"data-source-dir"`
		} `toml:"mydumper"`
	}
	if err := toml.Unmarshal(data, &document); err != nil {
		return "", errors.Wrap(err, "cannot parse loader configuration")
	}
	return document.Mydumper.DataSourceDir, nil
}

// rewriteDataSourceDir rewrites loader configuration on the host running the loader.
func rewriteDataSourceDir(ctx context.Context, files scripts.Files, configPath, dumpDir string) error {
	data, err := files.ReadFile(ctx, configPath)
	if err != nil {
		return errors.Wrap(err, "cannot read loader configuration")
	}
	previous, err := DataSourceDir(data)
	if err != nil {
		return errors.Wrapf(err, "%q", configPath)
	}
	output, err := SetDataSourceDir(data, dumpDir)
	if err != nil {
		return errors.Wrapf(err, "%q", configPath)
	}
	if err := files.WriteFile(ctx, configPath, output); err != nil {
		return errors.Wrap(err, "cannot write loader configuration")
	}
	log.Debugf("data-source-dir of %s changed from %q to %q", configPath, previous, dumpDir)
	return nil
}
