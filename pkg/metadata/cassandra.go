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
	"fmt"
	"time"

	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/gocql/gocql"
	"github.com/pkg/errors"
)

var (
	cassandraAddressFlag           = conf.NewStringFlag("cassandra_address", "Address of Cassandra DB endpoint for metadata", "127.0.0.1")
	cassandraPortFlag              = conf.NewIntFlag("cassandra_port", "Port of Cassandra DB endpoint", 9042)
	cassandraKeyspaceFlag          = conf.NewStringFlag("cassandra_keyspace", "Keyspace of metadata table", "benchmarks")
	cassandraCreateKeyspaceFlag    = conf.NewBoolFlag("cassandra_create_keyspace", "Create keyspace if it does not exist", true)
	cassandraUsernameFlag          = conf.NewStringFlag("cassandra_username", "Cassandra user", "")
	cassandraPasswordFlag          = conf.NewStringFlag("cassandra_password", "Cassandra password", "")
	cassandraTimeoutFlag           = conf.NewDurationFlag("cassandra_timeout", "Cassandra query timeout", 10*time.Second)
	cassandraConnectionTimeoutFlag = conf.NewDurationFlag("cassandra_connection_timeout", "Cassandra connection timeout", 10*time.Second)
	cassandraSslEnabledFlag        = conf.NewBoolFlag("cassandra_ssl", "Use SSL to connect to Cassandra", false)
	cassandraSslCAPathFlag         = conf.NewStringFlag("cassandra_ssl_ca_path", "CA certificate of Cassandra", "")
)

// CassandraConfig encodes the settings for connecting to the database.
type CassandraConfig struct {
	Address           string
	Port              int
	KeyspaceName      string
	CreateKeyspace    bool
	Username          string
	Password          string
	Timeout           time.Duration
	ConnectionTimeout time.Duration
	SslEnabled        bool
	SslCAPath         string
}

// Cassandra is a helper struct which keeps the Cassandra session alive,
// holds the active configuration and the campaign id to tag the metadata with.
type Cassandra struct {
	campaignID string
	config     CassandraConfig
	session    *gocql.Session
}

// DefaultCassandraConfig applies the Cassandra settings from the command line flags and
// environment variables.
func DefaultCassandraConfig() CassandraConfig {
	return CassandraConfig{
		Address:           cassandraAddressFlag.Value(),
		Port:              cassandraPortFlag.Value(),
		KeyspaceName:      cassandraKeyspaceFlag.Value(),
		CreateKeyspace:    cassandraCreateKeyspaceFlag.Value(),
		Username:          cassandraUsernameFlag.Value(),
		Password:          cassandraPasswordFlag.Value(),
		Timeout:           cassandraTimeoutFlag.Value(),
		ConnectionTimeout: cassandraConnectionTimeoutFlag.Value(),
		SslEnabled:        cassandraSslEnabledFlag.Value(),
		SslCAPath:         cassandraSslCAPathFlag.Value(),
	}
}

// NewCassandra returns the Metadata helper from a campaign id and configuration.
func NewCassandra(campaignID string, config CassandraConfig) (Metadata, error) {
	metadata := &Cassandra{
		campaignID: campaignID,
		config:     config,
	}
	if err := metadata.connect(); err != nil {
		return nil, err
	}
	return metadata, nil
}

// clusterConfig prepares configuration of Cassandra cluster.
func (m *Cassandra) clusterConfig() *gocql.ClusterConfig {
	cluster := gocql.NewCluster(m.config.Address)
	cluster.Port = m.config.Port
	cluster.Consistency = gocql.LocalOne
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.ProtoVersion = 4
	cluster.ConnectTimeout = m.config.ConnectionTimeout
	cluster.Timeout = m.config.Timeout

	if m.config.Username != "" && m.config.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: m.config.Username,
			Password: m.config.Password,
		}
	}
	if m.config.SslEnabled {
		cluster.SslOpts = &gocql.SslOptions{CaPath: m.config.SslCAPath, EnableHostVerification: true}
	}
	return cluster
}

func (m *Cassandra) createKeyspace() error {
	session, err := m.clusterConfig().CreateSession()
	if err != nil {
		return errors.Wrap(err, "cannot create session for creating keyspace")
	}
	defer session.Close()

	query := fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1};", m.config.KeyspaceName)
	return errors.Wrap(session.Query(query).Exec(), "cannot create keyspace")
}

// connect creates a session to the Cassandra cluster. This function should only be called once.
func (m *Cassandra) connect() error {
	if m.config.CreateKeyspace {
		if err := m.createKeyspace(); err != nil {
			return err
		}
	}

	cluster := m.clusterConfig()
	cluster.Keyspace = m.config.KeyspaceName
	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrapf(err, "cannot connect to Cassandra at %s:%d", m.config.Address, m.config.Port)
	}
	m.session = session

	if err = session.Query("CREATE TABLE IF NOT EXISTS metadata (campaign_id text, kind text, time timestamp, timeuuid TIMEUUID, metadata map<text,text>, PRIMARY KEY ((campaign_id), timeuuid),) WITH CLUSTERING ORDER BY (timeuuid ASC);").Exec(); err != nil {
		session.Close()
		return errors.Wrap(err, "cannot create metadata table")
	}
	return nil
}

func (m *Cassandra) storeMap(metadata map[string]string, kind string) error {
	err := m.session.Query(`INSERT INTO metadata (campaign_id, kind, time, timeuuid, metadata) VALUES (?, ?, ?, ?, ?)`, m.campaignID, kind, now(), gocql.TimeUUID(), metadata).Exec()
	return errors.Wrapf(err, "cannot publish metadata of kind %q", kind)
}

// Record stores a key and value and associates with the campaign id.
func (m *Cassandra) Record(key, value, kind string) error {
	return m.storeMap(map[string]string{key: value}, kind)
}

// RecordMap stores a key and value map and associates with the campaign id.
func (m *Cassandra) RecordMap(metadata map[string]string, kind string) error {
	return m.storeMap(metadata, kind)
}

// GetAllByKind retrieves all maps of kind recorded for the campaign.
func (m *Cassandra) GetAllByKind(kind string) ([]map[string]string, error) {
	var metadata map[string]string
	maps := []map[string]string{}

	iter := m.session.Query(`SELECT metadata FROM metadata WHERE campaign_id = ? AND kind = ? ALLOW FILTERING`, m.campaignID, kind).Iter()
	for iter.Scan(&metadata) {
		maps = append(maps, metadata)
		metadata = nil
	}
	if err := iter.Close(); err != nil {
		return nil, errors.Wrapf(err, "cannot read metadata of kind %q", kind)
	}
	return maps, nil
}

// GetByKind retrieves single kind from the database.
// Returns error if no kind or too many groups found.
func (m *Cassandra) GetByKind(kind string) (map[string]string, error) {
	maps, err := m.GetAllByKind(kind)
	if err != nil {
		return nil, err
	}
	return single(m.campaignID, kind, maps)
}

// Clear deletes all metadata entries associated with the current campaign id.
func (m *Cassandra) Clear() error {
	return m.session.Query(`DELETE FROM metadata WHERE campaign_id = ?`, m.campaignID).Exec()
}

// Close closes session.
func (m *Cassandra) Close() error {
	m.session.Close()
	return nil
}
