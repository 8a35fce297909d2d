// Package main provides the dashboard CLI: an HTTP server and a one-shot
// snapshot dump.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"course-dashboard/internal/app"
	"course-dashboard/internal/config"
	"course-dashboard/internal/devutil"
	"course-dashboard/internal/domain"
)

var (
	configDir string

	servePort string

	snapshotPick    []string
	snapshotTimeout time.Duration
	snapshotUser    int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dashboard",
		Short:        "Course progress dashboard over Moodle",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory holding config.yaml (default ./configs, then .)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides server.port)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return a.Run()
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Run one aggregation pass and print the snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotCmd,
	}
	cmd.Flags().StringSliceVar(&snapshotPick, "pick", nil, "only print these dotted paths (e.g. profile.fullName,failures)")
	cmd.Flags().DurationVar(&snapshotTimeout, "timeout", 5*time.Minute, "overall pass timeout")
	cmd.Flags().IntVar(&snapshotUser, "user", 0, "user id (overrides dashboard.user_id)")
	return cmd
}

func runSnapshotCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if snapshotUser != 0 {
		cfg.Dashboard.UserID = snapshotUser
	}
	// stdout carries the JSON
	cfg.Log.Console = false

	ctx, cancel := context.WithTimeout(cmd.Context(), snapshotTimeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	st, err := a.Orchestrator.Refresh(ctx)
	if st.Snapshot == nil {
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		return fmt.Errorf("refresh produced no snapshot")
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return printSnapshot(cmd.OutOrStdout(), st.Snapshot, snapshotPick)
}

func printSnapshot(w io.Writer, s *domain.Snapshot, pick []string) error {
	var v any = s
	if len(pick) > 0 {
		v = devutil.Pick(s, pick...)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
