package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrison/fedviz/internal/logger"
	"github.com/harrison/fedviz/internal/server"
)

// NewServeCommand creates the 'fedviz serve' command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chart tables over HTTP",
		Long: `Load every device file under the data directory and serve chart tables as
JSON (GET /summary, /average, /daynight, /chronogram, /breakpoint, /meals).
Query parameters override settings for one request. The directory is
rescanned on the configured cron schedule, and with --watch whenever a
device file changes.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config server.addr)")
	cmd.Flags().String("data-dir", "", "Directory of device files (default from config server.data_dir)")
	cmd.Flags().String("schedule", "", "Cron reload schedule, empty string disables (default from config)")
	cmd.Flags().Bool("watch", false, "Reload when device files change (default from config server.watch)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var addrPtr, dataDirPtr *string
	if cmd.Flags().Changed("addr") {
		v, _ := cmd.Flags().GetString("addr")
		addrPtr = &v
	}
	if cmd.Flags().Changed("data-dir") {
		v, _ := cmd.Flags().GetString("data-dir")
		dataDirPtr = &v
	}
	cfg := env.cfg
	cfg.MergeWithFlags(nil, nil, addrPtr, dataDirPtr)
	if cmd.Flags().Changed("schedule") {
		cfg.Server.ReloadSchedule, _ = cmd.Flags().GetString("schedule")
	}
	if cmd.Flags().Changed("watch") {
		cfg.Server.Watch, _ = cmd.Flags().GetBool("watch")
	}
	if name, _ := cmd.Flags().GetString("groups-file"); name != "" {
		cfg.Server.GroupsFile = env.groupsPath(name)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Server.DataDir == "" {
		return fmt.Errorf("serve needs --data-dir or server.data_dir in config")
	}

	zl, err := logger.NewProduction(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info("serving", zap.String("data_dir", cfg.Server.DataDir), zap.String("addr", cfg.Server.Addr))
	return server.New(cfg.Server, env.settings, zl).Run(ctx)
}
