package main

import (
	"github.com/spgsite/cms-api/jobs"
	"github.com/spgsite/cms-api/seed"
	"github.com/spgsite/cms-api/storage"

	"github.com/spf13/cobra"
)

// newSeedCmd builds the "seed" command
func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Create the categories, contents and admins of a YAML seed file",
		Long: `Create the categories, contents and admins listed in a YAML seed file.

Items which already exist, matched by slug or email, are left untouched so a
seed file can be applied more than once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := seed.Load(args[0])
			if err != nil {
				return err
			}

			res, err := seed.Seeder{
				Logger: a.logger.GetChild("seed"),
				Store:  a.store,
			}.Apply(a.ctx, file)
			if err != nil {
				return err
			}

			cmd.Println(res.String())
			return nil
		},
	}
}

// newCleanupCmd builds the "cleanup" commands, which run the server's
// periodic jobs once
func newCleanupCmd(a *app) *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run a cleanup job once",
	}

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return jobs.NewSessionCleanupJob(a.logger.GetChild("sessions"), a.store).Do(a.ctx, nil)
		},
	}

	orphansCmd := &cobra.Command{
		Use:   "orphans",
		Short: "Remove stored images no category, content or slider image references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := storage.NewLocalBucket(a.cfg.StorageDir, a.cfg.StorageBucket,
				a.cfg.PublicURL, a.cfg.AllowedImageTypes)
			if err != nil {
				return err
			}

			return jobs.NewOrphanCleanupJob(a.logger.GetChild("orphans"), a.store, bucket,
				a.cfg.OrphanGracePeriod).Do(a.ctx, nil)
		},
	}

	cleanupCmd.AddCommand(sessionsCmd, orphansCmd)
	return cleanupCmd
}
