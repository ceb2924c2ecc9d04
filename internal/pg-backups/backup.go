/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package backups

import (
	"archive/zip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nobleverse/noble/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Uploader is the slice of the S3 client used to ship archives.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type BackupManager struct {
	Config   *config.Configuration
	S3Client Uploader
	now      func() time.Time
}

func NewBackupManager(cnf *config.Configuration) *BackupManager {
	return &BackupManager{Config: cnf, now: time.Now}
}

func (bm *BackupManager) clock() time.Time {
	if bm.now == nil {
		return time.Now()
	}
	return bm.now()
}

type dumpTarget struct {
	host, port, user, password, name string
}

func parseDSN(dsn string) (dumpTarget, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return dumpTarget{}, errors.Wrap(err, "invalid data source DNS")
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return dumpTarget{}, fmt.Errorf("unsupported data source scheme %q", parsed.Scheme)
	}
	host, port, err := net.SplitHostPort(parsed.Host)
	if err != nil {
		host, port = parsed.Host, "5432"
	}
	password, _ := parsed.User.Password()
	name := strings.TrimPrefix(parsed.Path, "/")
	if name == "" {
		name = "noble"
	}
	return dumpTarget{host: host, port: port, user: parsed.User.Username(), password: password, name: name}, nil
}

// BackupToDisk runs pg_dump into <BackupDir>/<date>/noble-<time>-backup.sql
// and returns the written path.
func (bm *BackupManager) BackupToDisk(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := parseDSN(bm.Config.DataSource.Dns)
	if err != nil {
		return "", err
	}

	db, err := sql.Open("postgres", bm.Config.DataSource.Dns)
	if err != nil {
		return "", errors.Wrap(err, "failed to open database connection")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return "", errors.Wrap(err, "failed to ping database")
	}

	var dbSize string
	if err := db.QueryRowContext(ctx, "SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&dbSize); err == nil {
		logrus.WithField("size", dbSize).Info("database size before backup")
	}

	now := bm.clock()
	dir := filepath.Join(bm.Config.BackupDir, now.Format("2006-01-02"))
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}
	filePath := filepath.Join(dir, fmt.Sprintf("noble-%s-backup.sql", now.Format("150405")))

	cmd := exec.CommandContext(ctx, "pg_dump", "-U", target.user, "-d", target.name, "-n", "noble", "-f", filePath)
	cmd.Env = append(os.Environ(), "PGHOST="+target.host, "PGPORT="+target.port, "PGUSER="+target.user, "PGPASSWORD="+target.password)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "pg_dump failed: %s", stderr.String())
	}

	logrus.WithField("path", filePath).Info("backup written")
	return filePath, nil
}

// BackupToS3 dumps the database, zips the day's backup directory and uploads
// the archive to the configured bucket.
func (bm *BackupManager) BackupToS3(ctx context.Context) error {
	filePath, err := bm.BackupToDisk(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to backup to disk")
	}

	dir := filepath.Dir(filePath)
	archive := dir + ".zip"
	if err := zipDir(dir, archive); err != nil {
		return errors.Wrap(err, "failed to zip backup")
	}
	defer os.Remove(archive)

	if err := bm.upload(ctx, archive, filepath.Base(archive)); err != nil {
		return errors.Wrap(err, "failed to upload backup")
	}
	logrus.WithField("key", filepath.Base(archive)).Info("backup uploaded to s3")
	return nil
}

func (bm *BackupManager) s3Client(ctx context.Context) (Uploader, error) {
	if bm.S3Client != nil {
		return bm.S3Client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(bm.Config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(bm.Config.AwsAccessKeyId, bm.Config.AwsSecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	bm.S3Client = s3.NewFromConfig(cfg)
	return bm.S3Client, nil
}

func (bm *BackupManager) upload(ctx context.Context, filePath, key string) error {
	if bm.Config.S3BucketName == "" {
		return errors.New("s3 bucket name is not configured")
	}
	client, err := bm.s3Client(ctx)
	if err != nil {
		return err
	}
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bm.Config.S3BucketName),
		Key:    aws.String(key),
		Body:   file,
	})
	return err
}

func zipDir(srcDir, destZip string) error {
	out, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := writer.Create(rel)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if walkErr != nil {
		writer.Close()
		return walkErr
	}
	return writer.Close()
}
