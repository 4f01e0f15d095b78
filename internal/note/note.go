// Package note parses markdown note files into structured documents.
//
// A note is an optional YAML front matter block (fenced by exact `---`
// lines) followed by a markdown body. The body is walked as an event
// stream: the first level-1 heading becomes the title, everything else
// accumulates into the content, link destinations become outgoing
// references, and fenced code blocks are collected separately.
package note

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---"

// MetadataError reports malformed YAML front matter. Source IO failures
// are returned as wrapped os errors instead, so callers can tell an
// unreadable file from a well-read but malformed one.
type MetadataError struct {
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("parse front matter: %v", e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Meta is the structured front matter of a note. Unknown keys are ignored.
type Meta struct {
	Tags []string `yaml:"tags"`
}

// CodeBlock is a fenced code block lifted out of the note body.
type CodeBlock struct {
	Lang string
	Code string
}

// Document is a parsed note.
type Document struct {
	Title      string
	Content    string
	File       string
	Refs       []string
	Meta       Meta
	CodeBlocks []CodeBlock
}

// FromFile reads and parses the note at path. An unreadable source is an
// IO error; malformed front matter is a *MetadataError.
func FromFile(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read note: %w", err)
	}
	return Parse(src, path)
}

// Parse parses raw note bytes. file is recorded verbatim on the document;
// it is not touched on disk.
func Parse(src []byte, file string) (*Document, error) {
	metaText, body := splitFrontMatter(src)

	w := &bodyWalker{source: body}
	root := goldmark.DefaultParser().Parse(text.NewReader(body))
	if err := ast.Walk(root, w.walk); err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}

	var meta Meta
	if strings.TrimSpace(metaText) != "" {
		if err := yaml.Unmarshal([]byte(metaText), &meta); err != nil {
			return nil, &MetadataError{Err: err}
		}
	}

	return &Document{
		Title:      w.title.String(),
		Content:    w.content.String(),
		File:       file,
		Refs:       w.refs,
		Meta:       meta,
		CodeBlocks: w.codeBlocks,
	}, nil
}

// splitFrontMatter separates the leading front matter block from the
// markdown body. The block opens only when the very first line is the
// fence and closes at the next fence line; an unclosed block swallows the
// rest of the file as metadata, mirroring a line-by-line split.
func splitFrontMatter(src []byte) (metaText string, body []byte) {
	var meta, md strings.Builder
	inHeader := false

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for i := 0; scanner.Scan(); i++ {
		line := scanner.Text()
		switch {
		case i == 0 && line == frontMatterFence:
			inHeader = true
		case inHeader && line == frontMatterFence:
			inHeader = false
		case inHeader:
			if meta.Len() > 0 {
				meta.WriteByte('\n')
			}
			meta.WriteString(line)
		default:
			if md.Len() > 0 {
				md.WriteByte('\n')
			}
			md.WriteString(line)
		}
	}

	return meta.String(), []byte(md.String())
}

// bodyWalker accumulates title, content, refs and code blocks over a
// markdown AST walk. Title state is explicit: inTitle is true strictly
// between the first level-1 heading start and its end, and titleDone
// keeps later level-1 headings in the content.
type bodyWalker struct {
	source []byte

	inTitle   bool
	titleDone bool

	title      strings.Builder
	content    strings.Builder
	refs       []string
	codeBlocks []CodeBlock
}

func (w *bodyWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := n.(type) {
	case *ast.Heading:
		return w.walkHeading(n, entering), nil

	case *ast.Text:
		if !entering {
			break
		}
		w.writeText(n.Segment.Value(w.source))
		if !w.inTitle && (n.SoftLineBreak() || n.HardLineBreak()) {
			w.content.WriteByte('\n')
		}

	case *ast.String:
		if entering {
			w.writeText(n.Value)
		}

	case *ast.Link:
		// The visible text arrives through the link's children; only
		// the destination is recorded here. Duplicates are kept.
		if entering {
			w.refs = append(w.refs, string(n.Destination))
		}

	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlocks = append(w.codeBlocks, CodeBlock{
				Lang: string(n.Language(w.source)),
				Code: segmentsText(n.Lines(), w.source),
			})
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeSpan:
		// Inline code never reaches the content.
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func (w *bodyWalker) walkHeading(h *ast.Heading, entering bool) ast.WalkStatus {
	if entering {
		if h.Level == 1 && !w.titleDone {
			w.inTitle = true
		}
		return ast.WalkContinue
	}
	if w.inTitle {
		w.inTitle = false
		w.titleDone = true
		return ast.WalkContinue
	}
	// Non-title headings delimit content like a line break.
	w.content.WriteByte('\n')
	return ast.WalkContinue
}

func (w *bodyWalker) writeText(b []byte) {
	if w.inTitle {
		w.title.Write(b)
		return
	}
	w.content.Write(b)
}

func segmentsText(lines *text.Segments, source []byte) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
