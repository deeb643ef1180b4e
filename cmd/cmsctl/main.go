// Command cmsctl manages the CMS API's users, admins and data from the
// command line. It reads the same APP_* environment variables as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
	"github.com/spf13/cobra"
)

// app holds what commands share, set up before any command runs
type app struct {
	ctx    context.Context
	logger golog.Logger
	cfg    *config.Config
	store  store.Store
}

// newRootCmd builds the command tree
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "cmsctl",
		Short:         "Manage the CMS API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.AddCommand(
		newUserCmd(a),
		newAdminCmd(a),
		newSeedCmd(a),
		newCleanupCmd(a),
	)

	return rootCmd
}

// open loads the configuration and connects to the store
func (a *app) open(ctx context.Context) error {
	a.ctx = ctx
	a.logger = golog.NewStdLogger("cmsctl")

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	s, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to the %s store: %w", cfg.StoreDriver, err)
	}
	a.store = s

	return nil
}

// close disconnects from the store
func (a *app) close() error {
	if a.store == nil {
		return nil
	}

	return a.store.Close(a.ctx)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		cancel()
		os.Exit(1)
	}
}
