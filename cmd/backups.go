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

package main

import (
	backups "github.com/nobleverse/noble/internal/pg-backups"

	"github.com/sirupsen/logrus"

	"github.com/spf13/cobra"
)

func backupCommands(n *nobleInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "start noble database backup",
	}

	cmd.AddCommand(backupToCommands(n))
	cmd.AddCommand(backupToS3Commands(n))

	return cmd
}

func backupToCommands(n *nobleInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "drive",
		Run: func(cmd *cobra.Command, args []string) {
			path, err := backups.NewBackupManager(n.cnf).BackupToDisk(cmd.Context())
			if err != nil {
				logrus.Error(err)
				return
			}
			logrus.WithField("path", path).Info("backup written")
		},
	}

	return cmd
}

func backupToS3Commands(n *nobleInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "s3",
		Run: func(cmd *cobra.Command, args []string) {
			err := backups.NewBackupManager(n.cnf).BackupToS3(cmd.Context())
			if err != nil {
				logrus.Error(err)
				return
			}
			logrus.WithField("bucket", n.cnf.S3BucketName).Info("backup uploaded")
		},
	}

	return cmd
}
