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

// Package experiment bootstraps benchctl process: configuration, campaign identity and logging.
package experiment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Exit codes of benchctl (sysexits.h).
const (
	// ExFailure means failed operation.
	ExFailure = 1
	// ExUsage means invalid flags or arguments.
	ExUsage = 64
	// ExSoftware means internal error.
	ExSoftware = 70
)

// CampaignLogName is name of log file in campaign directory.
const CampaignLogName = "campaign.log"

// LogDirFlag is parent of campaign directories.
var LogDirFlag = conf.NewStringFlag("log_dir", "Directory of campaign logs", "/data1/workspace/ottertune-test/log")

// NewCampaignID returns random campaign identifier.
func NewCampaignID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "cannot generate campaign ID")
	}
	return id.String(), nil
}

// CreateCampaignDir creates <logDir>/<appName>_<campaignID> with log file inside.
func CreateCampaignDir(logDir, appName, campaignID string) (string, *os.File, error) {
	campaignDirectory := filepath.Join(logDir, fmt.Sprintf("%s_%s", appName, campaignID))
	if err := os.MkdirAll(campaignDirectory, 0755); err != nil {
		return "", nil, errors.Wrapf(err, "cannot create campaign directory %q", campaignDirectory)
	}

	logFile, err := os.OpenFile(filepath.Join(campaignDirectory, CampaignLogName), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return "", nil, errors.Wrapf(err, "cannot create log file in %q", campaignDirectory)
	}
	return campaignDirectory, logFile, nil
}

// Campaign is identity and log of single benchctl invocation.
type Campaign struct {
	ID        string
	Directory string
	logFile   *os.File
}

// Initialize generates campaign ID, creates campaign directory and sends logs both to stderr and campaign log.
func Initialize(appName string) (*Campaign, error) {
	campaignID, err := NewCampaignID()
	if err != nil {
		return nil, err
	}
	return InitializeIn(LogDirFlag.Value(), appName, campaignID, os.Stderr)
}

// InitializeIn is Initialize with explicit log directory, campaign ID and console output.
func InitializeIn(logDir, appName, campaignID string, console io.Writer) (*Campaign, error) {
	campaignDirectory, logFile, err := CreateCampaignDir(logDir, appName, campaignID)
	if err != nil {
		return nil, err
	}

	// Setup logging set to both output and logFile.
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.100"})
	logrus.SetOutput(io.MultiWriter(logFile, console))
	logrus.Infof("Starting %s campaign %s, logs in %q", appName, campaignID, campaignDirectory)

	return &Campaign{ID: campaignID, Directory: campaignDirectory, logFile: logFile}, nil
}

// Close restores console logging and closes campaign log.
func (c *Campaign) Close() error {
	logrus.SetOutput(os.Stderr)
	return c.logFile.Close()
}
