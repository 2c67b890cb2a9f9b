package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tnrlabs/thunder-runner/internal/config"
	"github.com/tnrlabs/thunder-runner/internal/services/runner"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pods visible to the configured token",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	runnerSvc := runner.New(log.Logger)
	pods, err := runnerSvc.List(context.Background(), *cfg)
	if err != nil {
		log.Error().Err(err).Msg("list failed")
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCE ID\tSTATUS\tHOST\tPORT")
	for _, p := range pods {
		port := ""
		if p.Port != 0 {
			port = fmt.Sprintf("%d", p.Port)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Status, p.Host, port)
	}
	return w.Flush()
}
