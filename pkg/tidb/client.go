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

// Package tidb talks to the SQL endpoint of cluster coordinators.
package tidb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultPort is the SQL port of TiDB servers.
	DefaultPort = 4000
	// DefaultUser is the lab admin account (no password).
	DefaultUser = "root"

	connectTimeout = 10 * time.Second
)

// Admin performs administrative statements on coordinator.
type Admin interface {
	// CreateDatabase creates database unless it exists.
	CreateDatabase(ctx context.Context, name string) error
	// SetGlobal changes global system variable.
	SetGlobal(ctx context.Context, variable string, value interface{}) error
	Close() error
}

// Dialer opens Admin connection to given host.
type Dialer func(host string) (Admin, error)

// Options of coordinator connections.
type Options struct {
	Port     int
	User     string
	Password string
}

// DefaultOptions returns root account on port 4000.
func DefaultOptions() Options {
	return Options{Port: DefaultPort, User: DefaultUser}
}

// DSN returns data source name of coordinator.
func (o Options) DSN(host string) string {
	config := mysql.NewConfig()
	config.User = o.User
	config.Passwd = o.Password
	config.Net = "tcp"
	config.Addr = net.JoinHostPort(host, strconv.Itoa(o.Port))
	config.Timeout = connectTimeout
	return config.FormatDSN()
}

// NewDialer returns Dialer using given options.
func NewDialer(options Options) Dialer {
	return func(host string) (Admin, error) {
		return Open(host, options)
	}
}

// Client is Admin backed by database/sql and MySQL protocol driver.
type Client struct {
	db   *sql.DB
	host string
}

// Open prepares connection pool to coordinator. Connection is established lazily.
func Open(host string, options Options) (*Client, error) {
	db, err := sql.Open("mysql", options.DSN(host))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open connection to %q", host)
	}
	db.SetMaxOpenConns(1)
	return NewClient(db, host), nil
}

// NewClient wraps existing database handle.
func NewClient(db *sql.DB, host string) *Client {
	return &Client{db: db, host: host}
}

// CreateDatabase creates database unless it exists.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	statement, err := CreateDatabaseStatement(name)
	if err != nil {
		return err
	}
	return c.exec(ctx, statement)
}

// SetGlobal changes global system variable.
func (c *Client) SetGlobal(ctx context.Context, variable string, value interface{}) error {
	statement, err := SetGlobalStatement(variable, value)
	if err != nil {
		return err
	}
	return c.exec(ctx, statement)
}

func (c *Client) exec(ctx context.Context, statement string) error {
	log.Infof("executing %q on %s", statement, c.host)
	if _, err := c.db.ExecContext(ctx, statement); err != nil {
		return errors.Wrapf(err, "%q on %s failed", statement, c.host)
	}
	return nil
}

// Close closes connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CreateDatabaseStatement returns idempotent CREATE DATABASE statement.
func CreateDatabaseStatement(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", errors.Errorf("invalid database name %q", name)
	}
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name), nil
}

// SetGlobalStatement returns SET GLOBAL statement. Only numbers, booleans and simple words are accepted as values.
func SetGlobalStatement(variable string, value interface{}) (string, error) {
	if !identifier.MatchString(variable) {
		return "", errors.Errorf("invalid variable name %q", variable)
	}

	var literal string
	switch v := value.(type) {
	case int, int32, int64, uint, uint32, uint64:
		literal = fmt.Sprintf("%d", v)
	case float64:
		literal = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			literal = "ON"
		} else {
			literal = "OFF"
		}
	case string:
		if !identifier.MatchString(v) {
			return "", errors.Errorf("invalid value %q of %s", v, variable)
		}
		literal = fmt.Sprintf("'%s'", v)
	default:
		return "", errors.Errorf("unsupported value type %T of %s", value, variable)
	}
	return fmt.Sprintf("SET @@GLOBAL.%s = %s", variable, literal), nil
}
