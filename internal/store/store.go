// Package store is the persistent, schema'd projection of parsed notes:
// a Bleve index on disk plus a writer-private staging batch. Mutations
// accumulate in the batch and become visible only at Commit, which also
// assigns a monotonically increasing sequence number. Readers never see
// staged work; queries always run against the last committed view.
//
// The store is a single sequential session: one process, one writer.
// Cross-process access must be serialized externally.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	indexDirName     = "notes.bleve"
	manifestFileName = "manifest.json"

	// Wildcard is the query token matching every committed document.
	Wildcard = "*"
)

// Record is the on-disk projection of a parsed note. Path is canonical
// and doubles as the document ID: there are never two live records for
// one path. Lastmod is the source file's mtime (unix seconds) captured
// at indexing time.
type Record struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tag     []string `json:"tag"`
	File    string   `json:"file"`
	Path    string   `json:"path"`
	Ref     []string `json:"ref"`
	Lang    []string `json:"lang"`
	Code    []string `json:"code"`
	Lastmod int64    `json:"lastmod"`
}

// Tracked is the minimal committed view of a record used by the
// synchronization pass: identity plus staleness marker.
type Tracked struct {
	Path    string
	Lastmod int64
}

// Store wraps the on-disk index with staging and commit bookkeeping.
type Store struct {
	dir          string
	indexPath    string
	manifestPath string

	idx      bleve.Index
	batch    *bleve.Batch
	manifest *manifest
}

// Open opens (or creates) the store under dir. Failures here are fatal
// to the invocation: without the index directory nothing else works.
func Open(dir string) (*Store, error) {
	indexPath := filepath.Join(dir, indexDirName)
	manifestPath := filepath.Join(dir, manifestFileName)

	idx, err := openIndex(indexPath)
	if err != nil {
		return nil, err
	}
	m, err := loadManifest(manifestPath)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}

	return &Store{
		dir:          dir,
		indexPath:    indexPath,
		manifestPath: manifestPath,
		idx:          idx,
		batch:        idx.NewBatch(),
		manifest:     m,
	}, nil
}

func openIndex(indexPath string) (bleve.Index, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	if _, err := os.Stat(indexPath); err == nil {
		idx, err := bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return idx, nil
	}
	idx, err := bleve.New(indexPath, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return idx, nil
}

func (s *Store) Close() error {
	if s == nil || s.idx == nil {
		return nil
	}
	if err := saveManifest(s.manifestPath, s.manifest); err != nil {
		log.Printf("warning: failed to save store manifest on close: %v", err)
	}
	return s.idx.Close()
}

// Upsert stages a full replacement of the record at rec.Path: a delete
// of any live record under that key followed by an insert of rec. Both
// sit in the same staged batch, so from the caller's view they are one
// unit, invisible to readers until Commit.
func (s *Store) Upsert(rec Record) error {
	s.batch.Delete(rec.Path)
	if err := s.batch.Index(rec.Path, rec); err != nil {
		return fmt.Errorf("stage %s: %w", rec.Path, err)
	}
	return nil
}

// StageDelete stages removal of the record at path.
func (s *Store) StageDelete(path string) {
	s.batch.Delete(path)
}

// Staged reports how many operations are waiting for the next commit.
func (s *Store) Staged() int {
	return s.batch.Size()
}

// Commit atomically applies everything staged since the last commit and
// returns the new sequence number. An empty staged set is a no-op and
// returns the current sequence number unchanged.
func (s *Store) Commit() (uint64, error) {
	if s.batch.Size() == 0 {
		return s.manifest.Seq, nil
	}
	if err := s.idx.Batch(s.batch); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	s.batch = s.idx.NewBatch()
	s.manifest.Seq++
	if err := saveManifest(s.manifestPath, s.manifest); err != nil {
		return 0, fmt.Errorf("persist sequence: %w", err)
	}
	return s.manifest.Seq, nil
}

// Seq returns the sequence number of the last commit.
func (s *Store) Seq() uint64 {
	return s.manifest.Seq
}

// parseQuery turns free query text into an executable query. Bare terms
// search the default fields (title+content, OR-style), field:value
// qualifiers address any indexed field, and the wildcard token matches
// every committed document.
func parseQuery(text string) (query.Query, error) {
	if strings.TrimSpace(text) == Wildcard {
		return bleve.NewMatchAllQuery(), nil
	}
	q := bleve.NewQueryStringQuery(text)
	parsed, err := q.Parse()
	if err != nil {
		return nil, &QueryError{Query: text, Err: err}
	}
	return parsed, nil
}

// List resolves query text to the canonical paths of matching committed
// records. Result order is unspecified.
func (s *Store) List(text string) ([]string, error) {
	q, err := parseQuery(text)
	if err != nil {
		return nil, err
	}
	hits, err := s.searchHits(q, FieldPath)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(hits))
	for _, hit := range hits {
		path, ok := hit.Fields[FieldPath].(string)
		if !ok {
			return nil, &CorruptionError{Reason: "record " + hit.ID + " is missing its path field"}
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Count returns how many committed records match the query text, without
// materializing any of them.
func (s *Store) Count(text string) (uint64, error) {
	q, err := parseQuery(text)
	if err != nil {
		return 0, err
	}
	res, err := s.idx.Search(bleve.NewSearchRequestOptions(q, 0, 0, false))
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return res.Total, nil
}

// ExactCount counts committed records whose field holds exactly value.
// The value is not analyzed, so on keyword fields like path this is an
// identity lookup.
func (s *Store) ExactCount(field, value string) (uint64, error) {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	res, err := s.idx.Search(bleve.NewSearchRequestOptions(tq, 0, 0, false))
	if err != nil {
		return 0, fmt.Errorf("exact lookup %s:%s: %w", field, value, err)
	}
	return res.Total, nil
}

// All returns the tracked view of every committed record. Any record
// missing path or lastmod aborts the call with a CorruptionError.
func (s *Store) All() ([]Tracked, error) {
	hits, err := s.searchHits(bleve.NewMatchAllQuery(), FieldPath, FieldLastmod)
	if err != nil {
		return nil, err
	}

	tracked := make([]Tracked, 0, len(hits))
	for _, hit := range hits {
		path, ok := hit.Fields[FieldPath].(string)
		if !ok {
			return nil, &CorruptionError{Reason: "record " + hit.ID + " is missing its path field"}
		}
		lastmod, ok := hit.Fields[FieldLastmod].(float64)
		if !ok {
			return nil, &CorruptionError{Reason: "record " + path + " is missing its lastmod field"}
		}
		tracked = append(tracked, Tracked{Path: path, Lastmod: int64(lastmod)})
	}
	return tracked, nil
}

// DeleteByQuery resolves the query against the committed view, stages a
// delete for each matching path key, and commits. Hits without a usable
// path field are logged and skipped.
func (s *Store) DeleteByQuery(text string) (uint64, error) {
	q, err := parseQuery(text)
	if err != nil {
		return 0, err
	}
	hits, err := s.searchHits(q, FieldPath)
	if err != nil {
		return 0, err
	}

	for _, hit := range hits {
		path, ok := hit.Fields[FieldPath].(string)
		if !ok {
			log.Printf("skipping delete of %s: no path field", hit.ID)
			continue
		}
		s.batch.Delete(path)
	}
	return s.Commit()
}

// Reset wipes the index and recreates it empty, dropping any staged
// work. The sequence counter is kept so commit numbers stay monotonic
// across a reindex.
func (s *Store) Reset() error {
	if err := s.idx.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.indexPath); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	idx, err := openIndex(s.indexPath)
	if err != nil {
		return err
	}
	s.idx = idx
	s.batch = idx.NewBatch()
	return nil
}

// searchHits runs q against the committed view, asking for the given
// stored fields on every hit. The request is sized to the committed
// document count so no match is dropped.
func (s *Store) searchHits(q query.Query, fields ...string) ([]*hit, error) {
	count, err := s.idx.DocCount()
	if err != nil {
		return nil, fmt.Errorf("doc count: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(q, int(count), 0, false)
	req.Fields = fields
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]*hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, &hit{ID: h.ID, Fields: h.Fields})
	}
	return hits, nil
}

type hit struct {
	ID     string
	Fields map[string]interface{}
}
