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

// Package archive ships archived benchmark results to S3 bucket.
package archive

import (
	"bytes"
	"context"
	"path"
	"path/filepath"

	"github.com/YiqinXiong/ottertune-test/pkg/benchmark"
	"github.com/YiqinXiong/ottertune-test/pkg/conf"
	"github.com/YiqinXiong/ottertune-test/pkg/scripts"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// BucketFlag enables uploads when set.
	BucketFlag   = conf.NewStringFlag("s3_bucket", "S3 bucket receiving archived results, uploads are disabled when empty", "")
	prefixFlag   = conf.NewStringFlag("s3_prefix", "Key prefix of uploaded results", "benchmark-results")
	regionFlag   = conf.NewStringFlag("s3_region", "AWS region of results bucket", "")
	endpointFlag = conf.NewStringFlag("s3_endpoint", "Custom S3 endpoint, e.g. MinIO", "")
)

// S3Config of S3Uploader.
type S3Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint is optional custom endpoint. Path style addressing is used with it.
	Endpoint string
}

// DefaultS3Config returns configuration from flags.
func DefaultS3Config() S3Config {
	return S3Config{
		Bucket:   BucketFlag.Value(),
		Prefix:   prefixFlag.Value(),
		Region:   regionFlag.Value(),
		Endpoint: endpointFlag.Value(),
	}
}

// UploadAPI is implemented by manager.Uploader.
type UploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Uploader uploads result files under <prefix>/<file name>. Files are read from the host
// where they were archived.
type S3Uploader struct {
	api    UploadAPI
	files  scripts.Files
	config S3Config
}

// NewS3Uploader creates uploader using default AWS credential chain.
func NewS3Uploader(ctx context.Context, s3Config S3Config, files scripts.Files) (*S3Uploader, error) {
	if s3Config.Bucket == "" {
		return nil, errors.New("bucket of results is not set")
	}

	var opts []func(*config.LoadOptions) error
	if s3Config.Region != "" {
		opts = append(opts, config.WithRegion(s3Config.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load AWS configuration")
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if s3Config.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3Config.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderWithAPI(manager.NewUploader(client), s3Config, files), nil
}

// NewS3UploaderWithAPI returns S3Uploader using given API.
func NewS3UploaderWithAPI(api UploadAPI, s3Config S3Config, files scripts.Files) *S3Uploader {
	return &S3Uploader{api: api, files: files, config: s3Config}
}

// Key returns object key of file.
func (u *S3Uploader) Key(filePath string) string {
	return path.Join(u.config.Prefix, filepath.Base(filePath))
}

// UploadFile uploads single file and returns its key.
func (u *S3Uploader) UploadFile(ctx context.Context, filePath string) (string, error) {
	data, err := u.files.ReadFile(ctx, filePath)
	if err != nil {
		return "", err
	}

	key := u.Key(filePath)
	_, err = u.api.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", errors.Wrapf(err, "cannot upload %q to s3://%s/%s", filePath, u.config.Bucket, key)
	}
	log.Debugf("uploaded %s to s3://%s/%s", filePath, u.config.Bucket, key)
	return key, nil
}

// Record uploads archived files of run. Runs without archive are skipped.
func (u *S3Uploader) Record(ctx context.Context, run *benchmark.Run) error {
	for _, filePath := range []string{run.ArchivedConfig, run.ArchivedLog} {
		if filePath == "" {
			continue
		}
		if _, err := u.UploadFile(ctx, filePath); err != nil {
			return err
		}
	}
	return nil
}
