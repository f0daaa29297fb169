package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinic/internal/config"
	"github.com/clinicdesk/clinic/internal/domain/identity"
	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/mongodb"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(mongoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			migrator, closePool, err := newMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closePool()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			migrator, closePool, err := newMigrator(ctx, dir)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.DateTime)
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newMigrator(ctx context.Context, dir string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, dir), pool.Close, nil
}

func mongoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mongo",
		Short: "MongoDB maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "indexes",
		Short: "Create the patient and prescription indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.MongoURI == "" {
				return fmt.Errorf("MONGO_URI is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			client, database, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(context.Background()) }()

			if err := identity.EnsurePatientIndexes(ctx, database); err != nil {
				return err
			}
			if err := prescribing.EnsureIndexes(ctx, database); err != nil {
				return err
			}
			fmt.Printf("Indexes ensured on database: %s\n", cfg.MongoDatabase)
			return nil
		},
	})
	return cmd
}
