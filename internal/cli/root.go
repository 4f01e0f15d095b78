// Package cli wires the notedex commands. All argument handling lives
// here; the engine and store below it never look at flags or ambient
// state.
package cli

import (
	"log"

	"github.com/spf13/cobra"
)

// Version is the version of the notedex CLI.
// Update this constant manually on every release.
const Version = "v0.1.0"

// NewRootCmd creates the root command for notedex.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "notedex",
		Short:   "Searchable index over your markdown notes",
		Long:    "Notedex maintains a persistent full-text index over directories of markdown notes,\nwith tag filtering and link-graph backreferences. No server, no daemon: the index\nis synchronized on demand and searched in place.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			log.SetPrefix("notedex: ")
			if verbose {
				log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
			} else {
				log.SetFlags(0)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().Bool("verbose", false, "Timestamped log output")
	rootCmd.PersistentFlags().String("config-dir", "", "Configuration directory (default: user config dir)")
	rootCmd.PersistentFlags().String("data-dir", "", "Index storage directory (default: user cache dir)")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newReindexCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newMcpCmd())

	return rootCmd
}
