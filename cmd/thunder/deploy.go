package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tnrlabs/thunder-runner/internal/config"
	"github.com/tnrlabs/thunder-runner/internal/services/runner"
)

var gpuType string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Create a pod and print the runner setup script",
	Long: `Create a Thunder Compute pod, wait until it reports running, and print
the shell statements that install the pod's SSH key material, register the
host key, and export _EXPERIMENTAL_DAGGER_RUNNER_HOST.

The script is printed, not executed; run it in your own shell:

  eval "$(thunder deploy)"`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&gpuType, "gpu", "", "GPU type to request (provider default if empty)")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if gpuType != "" {
		cfg.GPU.Type = gpuType
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, aborting; any created pod stays up until destroy")
		cancel()
	}()

	runnerSvc := runner.New(log.Logger)
	script, err := runnerSvc.Deploy(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("deploy failed")
		return err
	}

	fmt.Print(script)
	return nil
}
