package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether Pro is active on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store()
			if err != nil {
				return err
			}

			state, err := store.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !state.IsPro {
				fmt.Fprintln(out, "plan: free")
				return nil
			}

			fmt.Fprintln(out, "plan: pro")
			if state.LicenseKey != "" {
				fmt.Fprintf(out, "key: %s\n", state.LicenseKey)
			}
			if !state.VerifiedAt.IsZero() {
				fmt.Fprintf(out, "verified: %s\n", state.VerifiedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
