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
	"fmt"
	"log"
	"os"

	"github.com/nobleverse/noble"
	"github.com/nobleverse/noble/config"
	"github.com/nobleverse/noble/database"
	"github.com/nobleverse/noble/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Noble represents the CLI application, encapsulating the root Cobra command.
type Noble struct {
	cmd *cobra.Command
}

// nobleInstance holds the service and its configuration for the subcommands.
type nobleInstance struct {
	noble *noble.Noble
	cnf   *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and wires the service before any command runs.
func preRun(app *nobleInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newNoble, err := setupNoble(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.noble = newNoble
		app.cnf = cnf

		return nil
	}
}

// setupNoble connects to the data source and builds the service on top of it.
func setupNoble(cfg *config.Configuration) (*noble.Noble, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newNoble, err := noble.NewNoble(db)
	if err != nil {
		return nil, fmt.Errorf("error creating noble: %v", err)
	}
	return newNoble, nil
}

// NewCLI creates the command-line interface with the server, worker,
// migration, reconciliation, backup and config subcommands.
func NewCLI() *Noble {
	var configFile string
	n := &nobleInstance{}

	var rootCmd = &cobra.Command{
		Use:   "noble",
		Short: "NobleVerse shipment acceptance and escrow ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./noble.json", "Configuration file for noble")

	rootCmd.PersistentPreRunE = preRun(n, &configFile)

	rootCmd.AddCommand(serverCommands(n))
	rootCmd.AddCommand(workerCommands(n))
	rootCmd.AddCommand(migrateCommands(n))
	rootCmd.AddCommand(reconcileCommands(n))
	rootCmd.AddCommand(backupCommands(n))
	rootCmd.AddCommand(configCommands())

	return &Noble{cmd: rootCmd}
}

func (w Noble) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
