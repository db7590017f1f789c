// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Shelf tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/shelf/internal/nodeservice"
	"github.com/starford/shelf/internal/tree"
)

const formatURI = "shelf://library-format"

// Server wraps the MCP server with Shelf tools.
type Server struct {
	mcp *server.MCPServer
	svc *nodeservice.Service
}

// New creates a new MCP server with all Shelf tools registered.
func New(svc *nodeservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Shelf",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Full-text search through note text, bookmark titles and directory names."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchNodes)

	s.mcp.AddTool(mcp.NewTool("read_node",
		mcp.WithDescription("Read a node with its location, tag names and file metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
	), s.readNode)

	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the items directly inside a directory, in display order."),
		mcp.WithString("parent_id", mcp.Description("Directory id; empty for the root, \"trash\" for the trash")),
	), s.listChildren)

	s.mcp.AddTool(mcp.NewTool("directory_tree",
		mcp.WithDescription("Draw the directory tree below a directory, or the whole library."),
		mcp.WithString("root_id", mcp.Description("Directory id; empty for the whole library")),
	), s.directoryTree)

	s.mcp.AddTool(mcp.NewTool("resolve_path",
		mcp.WithDescription("Return the slash-separated path of a directory, e.g. /projects/2025."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Directory id")),
	), s.resolvePath)

	s.mcp.AddTool(mcp.NewTool("create_text_note",
		mcp.WithDescription("Create a text note. Read the library format first via "+
			"the get_library_format tool or the "+formatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text following the library format")),
		mcp.WithString("parent_id", mcp.Description("Directory id to create the note in")),
		mcp.WithString("directory_path", mcp.Description("Directory path to create the note in; missing directories are created")),
	), s.createTextNote)

	s.mcp.AddTool(mcp.NewTool("create_directory_path",
		mcp.WithDescription("Create every missing directory along a slash-separated path and return the last one."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path such as projects/2025/q1")),
	), s.createDirectoryPath)

	s.mcp.AddTool(mcp.NewTool("find_tag",
		mcp.WithDescription("Find a tag by name, ignoring accents and case."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Tag name")),
	), s.findTag)

	s.mcp.AddTool(mcp.NewTool("add_image",
		mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI and create an image node for it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("name", mcp.Description("File name; derived from the URL when empty")),
		mcp.WithString("description", mcp.Description("Image description")),
		mcp.WithString("parent_id", mcp.Description("Directory id to create the image in")),
	), s.addImage)

	s.mcp.AddTool(mcp.NewTool("get_library_format",
		mcp.WithDescription("Returns the Shelf library format: node kinds, directories, trash, tags and note text conventions."),
	), s.getLibraryFormat)

	// Resource: library format.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Library Format",
			mcp.WithResourceDescription("How a Shelf library is organised and how notes are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLibraryFormatResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until ctx is cancelled or stdin
// closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(os.Stderr, "mcp: ", log.LstdFlags))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(detail), nil
}

func (s *Server) listChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListChildren(ctx, req.GetString("parent_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items), nil
}

func (s *Server) directoryTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rootID := req.GetString("root_id", "")
	trees, err := s.svc.Tree(ctx, rootID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(tree.Render(s.svc.TreeLabel(rootID), trees...)), nil
}

func (s *Server) resolvePath(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.Library().Nodes.ResolvePath(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(path), nil
}

func (s *Server) createTextNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lib := s.svc.Library()
	parentID := req.GetString("parent_id", "")
	if dirPath := req.GetString("directory_path", ""); dirPath != "" {
		if parentID != "" {
			return mcp.NewToolResultError("give parent_id or directory_path, not both"), nil
		}
		parentID, err = lib.CreateDirectoryPath(ctx, dirPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	node, err := lib.CreateText(ctx, parentID, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	loc, err := s.svc.Location(node)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s in %s", node.ID, loc)), nil
}

func (s *Server) createDirectoryPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lib := s.svc.Library()
	id, err := lib.CreateDirectoryPath(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := lib.Nodes.ResolvePath(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id, "path": resolved}), nil
}

func (s *Server) findTag(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, ok := s.svc.Library().Tags.Find(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no tag matches %q", name)), nil
	}
	return jsonResult(tag), nil
}

func (s *Server) getLibraryFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LibraryFormat), nil
}

func (s *Server) readLibraryFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     LibraryFormat,
		},
	}, nil
}
