package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add FILE...",
		Short: "Add note files to the index",
		Long:  "Parse the given markdown files and index them. Files that fail to parse are skipped with a warning.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = sess.Engine.Add(args)
			return err
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove QUERY...",
		Short: "Remove indexed notes matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = sess.Engine.Remove(strings.Join(args, " "))
			return err
		},
	}
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Index untracked files under the configured note roots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = sess.Engine.DiscoverNew()
			return err
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Synchronize the index with the filesystem",
		Long:  "Index untracked files, re-index changed ones, and drop records whose source files are gone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = sess.Engine.FullUpdate()
			return err
		},
	}
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new timestamp-named note and index it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			path, _, err := sess.Engine.Create()
			if err != nil {
				return err
			}
			cmd.Println(path)
			return nil
		},
	}
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the whole index from the tracked files",
		Long:  "Re-derive every indexed note from its source file and rebuild the store from scratch. Repairs backreferences broken by bulk changes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			_, err = sess.Engine.Reindex()
			return err
		},
	}
}
