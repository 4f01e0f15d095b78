// Package engine keeps the index store consistent with the note files on
// disk. It walks the configured roots, diffs what it finds against the
// committed index, stages upserts and deletes on the store's writer, and
// finalizes each pass with a single commit. Every operation here is
// idempotent; running it again is the retry mechanism.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/notedex/cli/internal/config"
	"github.com/notedex/cli/internal/note"
	"github.com/notedex/cli/internal/store"
)

// ErrNoRoots is returned by Create when the configuration lists no note
// roots to place the new file under.
var ErrNoRoots = errors.New("no note roots configured")

// Engine orchestrates parsing, reference resolution and store updates.
type Engine struct {
	store *store.Store
	cfg   config.Config
}

// New builds an Engine over an open store and an explicitly constructed
// configuration.
func New(s *store.Store, cfg config.Config) *Engine {
	return &Engine{store: s, cfg: cfg}
}

// Add parses the given files and stages an upsert for each, then commits
// once. Files that fail to parse are logged and skipped; they never
// abort the batch.
func (e *Engine) Add(paths []string) (uint64, error) {
	for _, p := range paths {
		doc, err := note.FromFile(p)
		if err != nil {
			log.Printf("skipping %s: %v", p, err)
			continue
		}
		if err := e.stage(doc); err != nil {
			return 0, err
		}
	}
	return e.store.Commit()
}

// DiscoverNew indexes every untracked file under the configured roots
// and commits. With no filesystem change a second run stages nothing and
// returns the same sequence number.
func (e *Engine) DiscoverNew() (uint64, error) {
	if err := e.discover(); err != nil {
		return 0, err
	}
	return e.store.Commit()
}

// FullUpdate runs discovery, then reconciles every tracked record:
// vanished sources are staged for deletion, sources with a strictly
// newer mtime are re-parsed and replaced, everything else is left alone.
// One commit finalizes the whole pass. A tracked record missing required
// fields aborts the update before anything is committed.
func (e *Engine) FullUpdate() (uint64, error) {
	if err := e.discover(); err != nil {
		return 0, err
	}

	tracked, err := e.store.All()
	if err != nil {
		return 0, err
	}
	for _, rec := range tracked {
		info, err := os.Stat(rec.Path)
		if err != nil {
			// Unreadable means deleted.
			e.store.StageDelete(rec.Path)
			continue
		}
		if info.ModTime().Unix() <= rec.Lastmod {
			continue
		}
		doc, err := note.FromFile(rec.Path)
		if err != nil {
			// Keep the stale record rather than losing it.
			log.Printf("could not update %s: %v", rec.Path, err)
			continue
		}
		if err := e.stage(doc); err != nil {
			return 0, err
		}
	}

	return e.store.Commit()
}

// Create makes a new empty, timestamp-named note under the first
// configured root, indexes it, and returns its path. An empty file is a
// valid note, so the parse cannot reasonably fail.
func (e *Engine) Create() (string, uint64, error) {
	if len(e.cfg.Paths) == 0 {
		return "", 0, ErrNoRoots
	}
	root, err := canonicalize(e.cfg.Paths[0])
	if err != nil {
		return "", 0, fmt.Errorf("resolve root %s: %w", e.cfg.Paths[0], err)
	}

	path := filepath.Join(root, time.Now().Format("2006_01_02_15_04_05")+".md")
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create note: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("create note: %w", err)
	}

	doc, err := note.FromFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("parse created note: %w", err)
	}
	if err := e.stage(doc); err != nil {
		return "", 0, err
	}
	seq, err := e.store.Commit()
	if err != nil {
		return "", 0, err
	}
	return path, seq, nil
}

// Remove deletes every record matching the query and commits.
func (e *Engine) Remove(query string) (uint64, error) {
	return e.store.DeleteByQuery(query)
}

// Reindex re-derives every committed document from its source file and
// rebuilds the store from scratch. References are resolved against the
// old committed view before the wipe, so backreferences broken by bulk
// changes come out repaired.
func (e *Engine) Reindex() (uint64, error) {
	docs, err := e.Search(store.Wildcard)
	if err != nil {
		return 0, err
	}

	records := make([]store.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := e.buildRecord(doc)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}

	if err := e.store.Reset(); err != nil {
		return 0, err
	}
	for _, rec := range records {
		if err := e.store.Upsert(rec); err != nil {
			return 0, err
		}
	}
	return e.store.Commit()
}

// Search resolves the query to full documents, each re-parsed fresh from
// its source file so results reflect current content even over a stale
// index entry. Sources that no longer parse are silently excluded.
func (e *Engine) Search(query string) ([]*note.Document, error) {
	paths, err := e.store.List(query)
	if err != nil {
		return nil, err
	}
	docs := make([]*note.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := note.FromFile(p)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// List resolves the query to a bare list of matching canonical paths.
func (e *Engine) List(query string) ([]string, error) {
	return e.store.List(query)
}

// discover walks the configured roots and stages an upsert for every
// file the index does not know yet. Roots that are not directories are
// skipped with a warning; hidden entries are never visited.
func (e *Engine) discover() error {
	for _, root := range e.cfg.Paths {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			log.Printf("warning: %s is not a directory, skipping", root)
			continue
		}
		canonRoot, err := canonicalize(root)
		if err != nil {
			log.Printf("warning: cannot resolve %s: %v", root, err)
			continue
		}

		err = filepath.WalkDir(canonRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") && path != canonRoot {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			return e.discoverFile(path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) discoverFile(path string) error {
	canon, err := canonicalize(path)
	if err != nil {
		log.Printf("warning: cannot resolve %s: %v", path, err)
		return nil
	}
	n, err := e.store.ExactCount(store.FieldPath, canon)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	doc, err := note.FromFile(canon)
	if err != nil {
		log.Printf("could not parse %s: %v", canon, err)
		return nil
	}
	return e.stage(doc)
}

// stage resolves a parsed document into an index record and stages its
// upsert on the writer. Nothing becomes visible until the next commit.
func (e *Engine) stage(doc *note.Document) error {
	rec, err := e.buildRecord(doc)
	if err != nil {
		return err
	}
	return e.store.Upsert(rec)
}

func (e *Engine) buildRecord(doc *note.Document) (store.Record, error) {
	path, err := canonicalize(doc.File)
	if err != nil {
		return store.Record{}, fmt.Errorf("resolve %s: %w", doc.File, err)
	}

	var lastmod int64
	if info, err := os.Stat(path); err == nil {
		lastmod = info.ModTime().Unix()
	} else {
		log.Printf("warning: could not read modification time of %s: %v", path, err)
	}

	rec := store.Record{
		Title:   doc.Title,
		Content: doc.Content,
		Tag:     doc.Meta.Tags,
		File:    path,
		Path:    path,
		Ref:     e.resolveRefs(path, doc.Refs),
		Lastmod: lastmod,
	}
	for _, cb := range doc.CodeBlocks {
		if cb.Lang != "" {
			rec.Lang = append(rec.Lang, cb.Lang)
		}
		if cb.Code != "" {
			rec.Code = append(rec.Code, cb.Code)
		}
	}
	return rec, nil
}

// canonicalize resolves path to a symlink-free absolute form. For paths
// that no longer exist (pending deletions) the cleaned absolute path is
// the canonical identity.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}
