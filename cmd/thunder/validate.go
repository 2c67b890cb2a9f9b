package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tnrlabs/thunder-runner/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the effective configuration without touching the API.`,
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  API endpoint: %s\n", cfg.API.Endpoint)
	if cfg.API.Token != "" {
		fmt.Println("  API token: (configured)")
	} else {
		fmt.Println("  API token: (missing; deploy and destroy will fail)")
	}
	if cfg.GPU.Type != "" {
		fmt.Printf("  GPU type: %s\n", cfg.GPU.Type)
	}
	fmt.Println()
	fmt.Println("Readiness Poll:")
	fmt.Printf("  Max attempts: %d\n", cfg.Poll.MaxAttempts)
	fmt.Printf("  Interval: %s\n", cfg.Poll.Interval)
	fmt.Println()
	fmt.Println("Host Key Scan:")
	fmt.Printf("  Max attempts: %d\n", cfg.Scan.MaxAttempts)
	fmt.Printf("  Interval: %s\n", cfg.Scan.Interval)
	fmt.Printf("  Insecure skip: %v\n", cfg.Scan.InsecureSkipScan)
	fmt.Println()
	fmt.Println("SSH:")
	fmt.Printf("  Key directory: %s\n", cfg.SSH.KeyDir)
	fmt.Printf("  Config directory: %s\n", cfg.SSH.Dir)
	fmt.Printf("  User: %s\n", cfg.SSH.User)

	return nil
}
