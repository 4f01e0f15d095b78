package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/notedex/cli/internal/config"
	"github.com/notedex/cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure note roots and build the initial index",
		Long:  "Select the directories notedex scans for markdown notes, write the configuration, and run a first indexing pass.",
		RunE:  runInit,
	}

	cmd.Flags().StringArray("path", nil, "Note root directory (repeatable; skips the interactive prompt)")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	roots, err := cmd.Flags().GetStringArray("path")
	if err != nil {
		return err
	}

	if len(roots) == 0 {
		var raw string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Note directories").
					Description("Colon-separated list of directories to scan for markdown notes.").
					Placeholder("~/notes").
					Value(&raw),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		for _, p := range strings.Split(raw, ":") {
			if p = strings.TrimSpace(p); p != "" {
				roots = append(roots, p)
			}
		}
	}

	if len(roots) == 0 {
		cmd.Println("No note directories given. Exiting.")
		return nil
	}

	for i, root := range roots {
		expanded, err := expandHome(root)
		if err != nil {
			return err
		}
		roots[i] = expanded
		if info, err := os.Stat(expanded); err != nil || !info.IsDir() {
			cmd.Printf("%s %s is not a directory yet; it will be skipped until it exists\n",
				infoStyle.Render("!"), expanded)
		}
	}

	configDir, _, err := resolveDirs(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(config.Config{Paths: roots}, configDir); err != nil {
		return err
	}
	cmd.Printf("%s Configuration saved to: %s\n", successStyle.Render("✓"), config.Path(configDir))

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	cmd.Printf("%s Indexing notes...\n", infoStyle.Render("→"))
	if _, err := sess.Engine.DiscoverNew(); err != nil {
		return err
	}
	total, err := sess.Store.Count(store.Wildcard)
	if err != nil {
		return err
	}
	cmd.Printf("%s Tracking %d notes (index: %s)\n", successStyle.Render("✓"), total, sess.DataDir)

	return nil
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
