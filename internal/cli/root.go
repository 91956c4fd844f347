package cli

import (
	"github.com/dmitrijs2005/pbx/internal/buildinfo"
	"github.com/spf13/cobra"
)

// Command returns the root of the command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "pbx",
		Short:         "Upload documents to the PBX integration API",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetVersionTemplate("PBX {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.Flags().BoolP("version", "V", false, "Print the current version number and exit.")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a JSON config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log every attempt")

	root.AddCommand(a.documentsCommand())
	return root
}
