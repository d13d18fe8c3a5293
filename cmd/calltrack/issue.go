package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIssueCmd(opts *rootOptions) *cobra.Command {
	var adminSecret string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint a new license key (operators only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminSecret == "" {
				adminSecret = os.Getenv("CALLTRACK_ADMIN_SECRET")
			}
			if adminSecret == "" {
				return errors.New("admin secret required: pass --admin-secret or set CALLTRACK_ADMIN_SECRET")
			}

			key, err := opts.client().Issue(cmd.Context(), adminSecret)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	cmd.Flags().StringVar(&adminSecret, "admin-secret", "", "Admin issuance secret (env CALLTRACK_ADMIN_SECRET)")
	return cmd
}
