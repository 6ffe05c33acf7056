// cppdbcctl is a small operator tool that loads a pool configuration,
// opens a pool against it, and demonstrates the surfaces this module
// exposes: pool statistics, a health check, and a single statement run
// inside a txmanager-managed transaction.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/cppdbc/cppdbc-go/drivers/mysql"
	_ "github.com/cppdbc/cppdbc-go/drivers/postgres"
	_ "github.com/cppdbc/cppdbc-go/drivers/sqlite"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	"github.com/cppdbc/cppdbc-go/healthcheck"
	"github.com/cppdbc/cppdbc-go/pool"
	"github.com/cppdbc/cppdbc-go/txmanager"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cppdbcctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "cppdbcctl",
		Short: "Operator CLI for the cppdbc connection pool",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "pool.yaml", "path to a pool config file")

	openPool := func(ctx context.Context) (*pool.ConnectionPool, error) {
		cfg, err := LoadPoolConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return pool.New(ctx, cppdbc.Default, cfg)
	}

	root.AddCommand(newStatsCommand(openPool))
	root.AddCommand(newHealthCommand(openPool))
	root.AddCommand(newTxDemoCommand(openPool))
	root.AddCommand(newConfigCommand())
	return root
}

func newStatsCommand(openPool func(context.Context) (*pool.ConnectionPool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a point-in-time snapshot of pool accounting",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			stats := p.GetStats()
			fmt.Printf("active=%d idle=%d total=%d running=%t\n",
				stats.ActiveCount, stats.IdleCount, stats.TotalCount, stats.IsRunning)
			return nil
		},
	}
}

func newHealthCommand(openPool func(context.Context) (*pool.ConnectionPool, error)) *cobra.Command {
	var readiness bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run a liveness or readiness check against the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			checker := healthcheck.New(p)
			var result healthcheck.Result
			if readiness {
				result = checker.Readiness(ctx)
			} else {
				result = checker.Liveness(ctx)
			}

			fmt.Printf("status=%s message=%q duration=%s\n", result.Status, result.Message, result.Duration)
			if result.Status != healthcheck.StatusHealthy {
				return fmt.Errorf("health check reported %s", result.Status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&readiness, "ready", false, "run the readiness check (borrows and validates a connection) instead of liveness")
	return cmd
}

func newTxDemoCommand(openPool func(context.Context) (*pool.ConnectionPool, error)) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "txdemo",
		Short: "Begin a transaction, run a statement, and commit or roll it back",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			tm := txmanager.New(p)
			defer tm.Close()

			txID, err := tm.BeginTransaction(ctx)
			if err != nil {
				return fmt.Errorf("begin transaction: %w", err)
			}

			conn, err := tm.GetTransactionConnection(txID)
			if err != nil {
				return fmt.Errorf("get transaction connection: %w", err)
			}
			if _, err := conn.ExecuteUpdate(ctx, "SELECT 1"); err != nil {
				_ = tm.RollbackTransaction(ctx, txID)
				return fmt.Errorf("run statement: %w", err)
			}

			if rollback {
				if err := tm.RollbackTransaction(ctx, txID); err != nil {
					return fmt.Errorf("rollback: %w", err)
				}
				fmt.Println("transaction rolled back")
				return nil
			}

			if err := tm.CommitTransaction(ctx, txID); err != nil {
				return fmt.Errorf("commit: %w", err)
			}
			fmt.Println("transaction committed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back instead of committing")
	return cmd
}
