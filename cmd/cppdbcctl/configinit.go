package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultFileConfig mirrors fileConfig's envDefault tags so `config init`
// and environment-only loading produce the same starting point.
func defaultFileConfig() fileConfig {
	return fileConfig{
		Name:                 "default",
		InitialSize:          5,
		MaxSize:              20,
		MinIdle:              3,
		ConnectionTimeoutMS:  30000,
		IdleTimeoutMS:        300000,
		ValidationIntervalMS: 5000,
		MaxLifetimeMS:        1800000,
		TestOnBorrow:         true,
		TestOnReturn:         false,
		ValidationQuery:      "SELECT 1",
		TransactionIsolation: "read-committed",
	}
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or scaffold pool configuration files",
	}
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a pool config file populated with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(defaultFileConfig())
			if err != nil {
				return fmt.Errorf("marshal default config: %w", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "pool.yaml", "path to write the generated config file")
	return cmd
}
