package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search the indexed notes",
		Long:  "Search with free text. Bare terms match titles and contents; field:value terms\n(file, path, tag, ref, lang, code) filter on a single field; '*' matches everything.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			query := strings.Join(args, " ")

			filesOnly, err := cmd.Flags().GetBool("files")
			if err != nil {
				return err
			}
			if filesOnly {
				paths, err := sess.Engine.List(query)
				if err != nil {
					return err
				}
				for _, p := range paths {
					cmd.Println(p)
				}
				return nil
			}

			docs, err := sess.Engine.Search(query)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				cmd.Printf("%s: %s\n", doc.File, doc.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolP("files", "f", false, "Only print matching file paths")

	return cmd
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the resolved note link graph as DOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			return sess.Engine.Graph(os.Stdout)
		},
	}
}
