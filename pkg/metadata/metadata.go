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

// Package metadata stores records of campaigns and benchmark runs.
package metadata

import (
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/pkg/errors"
)

// Predefined kinds of metadata.
// Kind allows to group metadata by their common characteristics: TypeFlags for parameters
// passed to benchctl, TypeEnviron for environment variables and TypeRun for benchmark runs.
const (
	TypeEmpty   = ""
	TypeFlags   = "flags"
	TypeEnviron = "environ"
	TypeRun     = "run"
	TypeRestore = "restore"
)

var (
	// DBFlag selects metadata backend.
	DBFlag = conf.NewStringFlag("metadata_db", "Metadata backend: sqlite, cassandra or none", "sqlite")
	// SQLitePathFlag is location of SQLite database file.
	SQLitePathFlag = conf.NewStringFlag("metadata_sqlite_path", "Path of SQLite metadata database", "/data1/workspace/benchmark_metadata.db")
)

// Metadata interface defines methods which must be supported by DB backend.
type Metadata interface {
	// Record stores a key and value and associates with the campaign id.
	Record(key string, value string, kind string) error
	// RecordMap stores a key and value map and associates with the campaign id.
	RecordMap(metadata map[string]string, kind string) error
	// GetByKind retrieves single metadata map of kind.
	// Returns error if no map or too many maps found.
	GetByKind(kind string) (map[string]string, error)
	// GetAllByKind retrieves all metadata maps of kind in order of recording.
	GetAllByKind(kind string) ([]map[string]string, error)
	// Clear deletes all metadata entries associated with the current campaign id.
	Clear() error
	Close() error
}

// NewDefault initializes metadata backend selected by flags. Nil Metadata is returned when recording is disabled.
func NewDefault(campaignID string) (Metadata, error) {
	switch DBFlag.Value() {
	case "sqlite":
		return NewSQLite(campaignID, SQLitePathFlag.Value())
	case "cassandra":
		return NewCassandra(campaignID, DefaultCassandraConfig())
	case "none", "":
		return nil, nil
	}
	return nil, errors.Errorf("unsupported database for metadata: %s", DBFlag.Value())
}

func single(campaignID, kind string, maps []map[string]string) (map[string]string, error) {
	if len(maps) != 1 {
		return nil, errors.Errorf("cannot retrieve metadata for campaign ID %q and %q kind: found %d entries", campaignID, kind, len(maps))
	}
	return maps[0], nil
}

// now is time source of recorded entries.
var now = time.Now
