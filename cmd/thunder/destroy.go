package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tnrlabs/thunder-runner/internal/config"
	"github.com/tnrlabs/thunder-runner/internal/services/runner"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy <instance-id>",
	Short: "Delete a pod and print the local cleanup script",
	Long: `Delete a Thunder Compute pod and print the shell statements that remove
its SSH key file, known_hosts entry, and ssh_config block:

  eval "$(thunder destroy <instance-id>)"`,
	Args: cobra.ExactArgs(1),
	RunE: runDestroy,
}

func runDestroy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	runnerSvc := runner.New(log.Logger)
	script, err := runnerSvc.Destroy(context.Background(), *cfg, args[0])
	if err != nil {
		log.Error().Err(err).Str("instance_id", args[0]).Msg("destroy failed")
		return err
	}

	fmt.Print(script)
	return nil
}
