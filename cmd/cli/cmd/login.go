package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify your subdivx credentials",
	Long: `Logs in to subdivx.com with the configured username and password
(config keys subdivx.username / subdivx.password, or the
SUBDIVX_SUBDIVX_USERNAME / SUBDIVX_SUBDIVX_PASSWORD environment variables)
and logs out again. Nothing is stored; every command opens its own session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := providerConfig()
		cfg.RequireCredentials = true

		fmt.Fprintln(cmd.OutOrStdout(), "Verifying subdivx credentials...")
		err := withSession(cmd.Context(), cfg, func(s Session) error {
			if !s.LoggedIn() {
				return fmt.Errorf("login did not complete for %s", cfg.Username)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("credential verification failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Credentials verified. Logged in as %s\n", viper.GetString(CfgKeyUsername))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(loginCmd)
}
