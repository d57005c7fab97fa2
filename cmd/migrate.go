package cmd

import (
	"brz/database"

	"github.com/spf13/cobra"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := bootstrap()

		// ConnectDb migrates as part of opening the connection.
		db, err := database.ConnectDb(cfg.Database)
		if err != nil {
			return err
		}
		if migrateSeed {
			if err := database.SeedPrograms(db); err != nil {
				return err
			}
			log.Info("programs seeded", map[string]interface{}{"count": len(database.DefaultPrograms)})
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "insert the default program catalog")
	rootCmd.AddCommand(migrateCmd)
}
