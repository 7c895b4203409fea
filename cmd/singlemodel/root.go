package main

import (
	"context"
	"os"

	"github.com/likearthian/singlemodel"
	"github.com/spf13/cobra"
)

var (
	cfg     Config
	backend singlemodel.Backend
	closeFn func()

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "singlemodel",
		Short: "inspect and edit single model key/value tables",
		Long: `singlemodel reads and writes a two-column (field, value) table
as a single record, committing only the fields that changed.`,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	setupFlags(RootCmd)

	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(setCmd)
	RootCmd.AddCommand(dumpCmd)
	RootCmd.AddCommand(initCmd)

	setCmd.Flags().Bool("null", false, "store null instead of a value")
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}

	cfg = loadConfig()
	if err := initLog(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	var err error
	backend, closeFn, err = openBackend(ctx, cfg)
	if err != nil {
		return err
	}

	singlemodel.SetDefault(singlemodel.NewRegistry(backend, cfg.registryOptions()...))
	return nil
}

func teardown() {
	if closeFn != nil {
		closeFn()
		closeFn = nil
	}
}

// commandContext bounds a single command by the configured timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.Timeout)
}

// Execute runs RootCmd. This is called by main.main().
func Execute() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

// execute closes the backend whether or not the command failed.
func execute() error {
	defer teardown()
	return RootCmd.Execute()
}
