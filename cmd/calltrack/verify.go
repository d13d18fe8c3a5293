package main

import (
	"fmt"

	"calltrack.pro/license/internal/client"
	"calltrack.pro/license/internal/entitlement"
	"calltrack.pro/license/internal/licensekey"
	"github.com/spf13/cobra"
)

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <license-key>",
		Short: "Verify a license key and activate Pro when it is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !licensekey.Valid(licensekey.Normalize(key)) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q does not look like %s-XXXX-XXXX-XXXX, checking anyway\n", key, licensekey.Prefix)
			}

			store, err := opts.store()
			if err != nil {
				return err
			}

			activator := entitlement.NewActivator(opts.client(), store)
			outcome, err := activator.Activate(cmd.Context(), key)

			out := cmd.OutOrStdout()
			switch outcome {
			case client.OutcomeValid:
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "valid: CallTrack Pro is now active")
				return nil
			case client.OutcomeInvalid:
				fmt.Fprintln(out, "invalid: this key is not active")
				return nil
			default:
				return fmt.Errorf("could not verify the key right now: %w", err)
			}
		},
	}
}
