// Package cloudsvc stores exported reports on Aliyun OSS, or on the local disk when no bucket is configured.
package cloudsvc

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/report"
)

const (
	connectTimeoutSec   = 10
	readWriteTimeoutSec = 60
)

type OSSUploader struct {
	bucket  *oss.Bucket
	prefix  string
	baseURL string
}

var (
	_ report.Uploader = (*OSSUploader)(nil)
	_ report.Remover  = (*OSSUploader)(nil)
)

func NewOSSUploader(conf core.CloudConfig) (*OSSUploader, error) {
	client, err := oss.New(conf.Endpoint, conf.AccessKeyID, conf.AccessKeySecret,
		oss.Timeout(connectTimeoutSec, readWriteTimeoutSec))
	if err != nil {
		return nil, errors.Wrap(err, "creating oss client")
	}
	bucket, err := client.Bucket(conf.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "opening oss bucket")
	}

	baseURL := strings.TrimRight(conf.PublicBaseURL, "/")
	if baseURL == "" {
		endpoint := strings.TrimPrefix(strings.TrimPrefix(conf.Endpoint, "https://"), "http://")
		baseURL = "https://" + conf.Bucket + "." + endpoint
	}
	return &OSSUploader{bucket: bucket, prefix: strings.Trim(conf.Prefix, "/"), baseURL: baseURL}, nil
}

func (u *OSSUploader) objectKey(key string) string {
	return path.Join(u.prefix, key)
}

func (u *OSSUploader) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	objKey := u.objectKey(key)
	if err := u.bucket.PutObject(objKey, r, oss.WithContext(ctx), oss.ContentType(contentType)); err != nil {
		return "", errors.Wrapf(err, "putting %s", objKey)
	}
	return u.baseURL + "/" + objKey, nil
}

// Delete removes an uploaded object.
func (u *OSSUploader) Delete(ctx context.Context, key string) error {
	objKey := u.objectKey(key)
	return errors.Wrapf(u.bucket.DeleteObject(objKey, oss.WithContext(ctx)), "deleting %s", objKey)
}

// NewUploader returns an OSS uploader when a bucket is configured, a local one otherwise.
func NewUploader(conf core.CloudConfig, logger core.Logger) (report.Uploader, error) {
	if conf.Bucket == "" || conf.Endpoint == "" {
		logger.Info("no oss bucket configured, storing reports in " + conf.LocalDir)
		return NewLocalUploader(conf.LocalDir, conf.PublicBaseURL)
	}
	return NewOSSUploader(conf)
}
