package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/notedex/cli/internal/config"
	"github.com/notedex/cli/internal/engine"
	"github.com/notedex/cli/internal/store"
	"github.com/spf13/cobra"
)

// session bundles the per-invocation state: the explicitly loaded
// configuration, the single writer/reader store handle, and the engine
// built on top of both. One session per process; the store directory is
// owned exclusively until Close.
type session struct {
	ConfigDir string
	DataDir   string
	Config    config.Config
	Store     *store.Store
	Engine    *engine.Engine
}

func resolveDirs(cmd *cobra.Command) (configDir, dataDir string, err error) {
	configDir, err = cmd.Flags().GetString("config-dir")
	if err != nil {
		return "", "", err
	}
	dataDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return "", "", err
	}

	if configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", "", fmt.Errorf("resolve config dir: %w", err)
		}
		configDir = filepath.Join(base, "notedex")
	}
	if dataDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", "", fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = filepath.Join(base, "notedex", "index")
	}
	return configDir, dataDir, nil
}

// openSession loads the config and opens the store. A store that cannot
// be opened is fatal to the invocation.
func openSession(cmd *cobra.Command) (*session, error) {
	configDir, dataDir, err := resolveDirs(cmd)
	if err != nil {
		return nil, err
	}

	cfg := config.Load(configDir)
	s, err := store.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open index store: %w", err)
	}

	return &session{
		ConfigDir: configDir,
		DataDir:   dataDir,
		Config:    cfg,
		Store:     s,
		Engine:    engine.New(s, cfg),
	}, nil
}

func (s *session) Close() {
	_ = s.Store.Close()
}
