package engine

import (
	"fmt"
	"io"
	"log"

	"github.com/notedex/cli/internal/store"
)

// Graph writes the resolved link graph of every committed note as DOT
// text. Nodes are titled notes; edges follow link destinations resolved
// the same way the write path resolves them, so the rendering reflects
// what a reindex would record.
func (e *Engine) Graph(w io.Writer) error {
	docs, err := e.Search(store.Wildcard)
	if err != nil {
		return err
	}

	ids := make(map[string]string, len(docs))
	if _, err := fmt.Fprintln(w, "digraph notes {"); err != nil {
		return err
	}
	for i, doc := range docs {
		path, err := canonicalize(doc.File)
		if err != nil {
			continue
		}
		id := fmt.Sprintf("n%d", i)
		ids[path] = id
		label := doc.Title
		if label == "" {
			label = path
		}
		if _, err := fmt.Fprintf(w, "  %s [label=%q];\n", id, label); err != nil {
			return err
		}
	}

	for _, doc := range docs {
		srcPath, err := canonicalize(doc.File)
		if err != nil {
			continue
		}
		src, ok := ids[srcPath]
		if !ok {
			continue
		}
		for _, ref := range doc.Refs {
			matches, err := e.store.List(store.FieldFile + ":" + ref)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				log.Printf("%s contains a broken link: %s", srcPath, ref)
				continue
			}
			if len(matches) > 1 {
				log.Printf("%s contains a link matching %d files: %s", srcPath, len(matches), ref)
			}
			for _, m := range matches {
				if dst, ok := ids[m]; ok {
					if _, err := fmt.Fprintf(w, "  %s -> %s;\n", src, dst); err != nil {
						return err
					}
				}
			}
		}
	}

	_, err = fmt.Fprintln(w, "}")
	return err
}
