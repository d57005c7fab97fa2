package cmd

import (
	"brz/middleware"
	"brz/models"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenUser uint
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		bootstrap()
		if tokenUser == 0 {
			return fmt.Errorf("--user is required")
		}
		tok, err := middleware.GenerateJWT(tokenUser, models.Role(strings.ToUpper(tokenRole)), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().UintVar(&tokenUser, "user", 0, "user id carried in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "USER", "session role (USER, ADMIN or OPERATOR)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
