package engine

import (
	"log"

	"github.com/notedex/cli/internal/store"
)

// resolveRefs turns the raw link destinations of a document into
// resolved backreference paths by querying the committed view with a
// file-scoped query per destination.
//
// No match is a broken link and records nothing. A unique match is
// recorded. Multiple matches are recorded in full after a warning:
// completeness over precision. Resolution happens only on the write
// path, so referrers of a target that later moves keep stale
// backreferences until a reindex.
func (e *Engine) resolveRefs(path string, refs []string) []string {
	var resolved []string
	for _, ref := range refs {
		matches, err := e.store.List(store.FieldFile + ":" + ref)
		if err != nil {
			log.Printf("warning: could not resolve link %s in %s: %v", ref, path, err)
			continue
		}
		switch len(matches) {
		case 0:
			log.Printf("%s contains a broken link: %s", path, ref)
		case 1:
			resolved = append(resolved, matches[0])
		default:
			log.Printf("%s contains a link matching %d files: %s", path, len(matches), ref)
			resolved = append(resolved, matches...)
		}
	}
	return resolved
}
