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

package metadata

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	// SQLite driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS metadata (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	time TIMESTAMP NOT NULL,
	metadata TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS metadata_campaign_kind ON metadata (campaign_id, kind);`

// SQLite keeps metadata in local database file.
type SQLite struct {
	campaignID string
	db         *sql.DB
}

// NewSQLite opens (creating when needed) database at path.
func NewSQLite(campaignID, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create directory of %q", path)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q", path)
	}
	// Single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "cannot create metadata schema in %q", path)
	}
	return &SQLite{campaignID: campaignID, db: db}, nil
}

// Record stores a key and value and associates with the campaign id.
func (m *SQLite) Record(key, value, kind string) error {
	return m.RecordMap(map[string]string{key: value}, kind)
}

// RecordMap stores a key and value map and associates with the campaign id.
func (m *SQLite) RecordMap(metadata map[string]string, kind string) error {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return errors.Wrapf(err, "cannot encode metadata of kind %q", kind)
	}
	_, err = m.db.Exec(`INSERT INTO metadata (campaign_id, kind, time, metadata) VALUES (?, ?, ?, ?)`,
		m.campaignID, kind, now(), string(encoded))
	return errors.Wrapf(err, "cannot store metadata of kind %q", kind)
}

// GetAllByKind retrieves all maps of kind recorded for the campaign.
func (m *SQLite) GetAllByKind(kind string) ([]map[string]string, error) {
	rows, err := m.db.Query(`SELECT metadata FROM metadata WHERE campaign_id = ? AND kind = ? ORDER BY id`, m.campaignID, kind)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read metadata of kind %q", kind)
	}
	defer rows.Close()

	maps := []map[string]string{}
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, errors.Wrap(err, "cannot scan metadata")
		}
		metadata := map[string]string{}
		if err := json.Unmarshal([]byte(encoded), &metadata); err != nil {
			return nil, errors.Wrap(err, "cannot decode metadata")
		}
		maps = append(maps, metadata)
	}
	return maps, errors.Wrap(rows.Err(), "cannot read metadata")
}

// GetByKind retrieves single kind from the database.
// Returns error if no kind or too many groups found.
func (m *SQLite) GetByKind(kind string) (map[string]string, error) {
	maps, err := m.GetAllByKind(kind)
	if err != nil {
		return nil, err
	}
	return single(m.campaignID, kind, maps)
}

// Clear deletes all metadata entries associated with the current campaign id.
func (m *SQLite) Clear() error {
	_, err := m.db.Exec(`DELETE FROM metadata WHERE campaign_id = ?`, m.campaignID)
	return errors.Wrap(err, "cannot clear metadata")
}

// Close closes database.
func (m *SQLite) Close() error {
	return m.db.Close()
}
