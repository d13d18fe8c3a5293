package main

import (
	"os"

	"calltrack.pro/license/internal/client"
	"calltrack.pro/license/internal/entitlement"
	"github.com/spf13/cobra"
)

const defaultAPIBase = "http://localhost:8080"

type rootOptions struct {
	apiBase         string
	entitlementFile string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "calltrack",
		Short:         "CallTrack Pro license tool",
		SilenceUsage: true,
	}

	apiDefault := os.Getenv("CALLTRACK_API_BASE")
	if apiDefault == "" {
		apiDefault = defaultAPIBase
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiBase, "api", apiDefault, "License API base URL (env CALLTRACK_API_BASE)")
	rootCmd.PersistentFlags().StringVar(&opts.entitlementFile, "entitlement-file", "", "Where the local Pro flag is stored (default $XDG_CONFIG_HOME/calltrack/entitlement.json)")

	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newIssueCmd(opts))

	return rootCmd
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.apiBase)
}

func (o *rootOptions) store() (*entitlement.FileStore, error) {
	path := o.entitlementFile
	if path == "" {
		var err error
		path, err = entitlement.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return entitlement.NewFileStore(path), nil
}
