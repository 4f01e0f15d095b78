package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

// SearchNotesArgs is the input for the searchNotes and listNotes MCP tools.
type SearchNotesArgs struct {
	Query string `json:"query"`
}

func newMcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long:  "Serve note search over the Model Context Protocol on stdio. The index is synchronized on startup and whenever the syncNotes tool is called; there is no background watching.",
		Args:  cobra.NoArgs,
		RunE:  runMcp,
	}
}

func runMcp(cmd *cobra.Command, args []string) error {
	_, dataDir, err := resolveDirs(cmd)
	if err != nil {
		return err
	}
	// Redirect all logging to a file so nothing leaks into the stdio
	// JSON-RPC transport.
	if err := initMCPLog(dataDir); err != nil {
		return fmt.Errorf("initialize mcp log: %w", err)
	}

	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if seq, err := sess.Engine.FullUpdate(); err != nil {
		log.Printf("startup sync error: %v", err)
	} else {
		log.Printf("startup sync done, seq=%d", seq)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "notedex",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "notedex.searchNotes",
		Description: "Search the indexed notes. Bare terms match titles and contents, field:value terms (file, path, tag, ref) filter on a field, '*' matches everything. Returns matching notes with their current content.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchNotesArgs) (*mcp.CallToolResult, any, error) {
		docs, err := sess.Engine.Search(args.Query)
		if err != nil {
			return nil, nil, err
		}

		var b strings.Builder
		results := make([]map[string]string, 0, len(docs))
		for _, doc := range docs {
			fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n", doc.Title, doc.File, doc.Content)
			results = append(results, map[string]string{
				"path":    doc.File,
				"title":   doc.Title,
				"content": doc.Content,
			})
		}
		if len(docs) == 0 {
			b.WriteString("No notes matched.")
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: b.String()},
			},
		}, map[string]interface{}{"notes": results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "notedex.listNotes",
		Description: "List the paths of indexed notes matching a query, without their content.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args SearchNotesArgs) (*mcp.CallToolResult, any, error) {
		paths, err := sess.Engine.List(args.Query)
		if err != nil {
			return nil, nil, err
		}

		text := strings.Join(paths, "\n")
		if text == "" {
			text = "No notes matched."
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: text},
			},
		}, map[string]interface{}{"paths": paths}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "notedex.syncNotes",
		Description: "Synchronize the index with the filesystem: index new notes, refresh changed ones, drop deleted ones.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		seq, err := sess.Engine.FullUpdate()
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Index synchronized (commit %d).", seq)},
			},
		}, map[string]interface{}{"seq": seq}, nil
	})

	// Run server over stdio
	return server.Run(context.Background(), &mcp.StdioTransport{})
}

const mcpLogFileName = "mcp.log"

// initMCPLog opens (or creates) mcp.log under the data directory and
// redirects the standard log package output there. The file is truncated
// on each startup so it never grows unbounded between runs.
func initMCPLog(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	logPath := filepath.Join(dataDir, mcpLogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	log.SetOutput(f)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("mcp server starting (log: %s)", logPath)
	return nil
}
