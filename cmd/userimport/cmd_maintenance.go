package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/userimport/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations.\n", database.MigrationCount())
		return nil
	},
}

var avatarsCmd = &cobra.Command{
	Use:   "avatars",
	Short: "Manage locally stored avatars",
}

var purgeYes bool

var avatarsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every local avatar and the upload setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !purgeYes {
			return fmt.Errorf("refusing to delete all avatars without --yes")
		}
		ctx := commandContext(cmd)
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.Avatars.Purge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed avatars of %d users.\n", n)
		return nil
	},
}

func init() {
	avatarsPurgeCmd.Flags().BoolVar(&purgeYes, "yes", false, "confirm deletion")
	avatarsCmd.AddCommand(avatarsPurgeCmd)
}
