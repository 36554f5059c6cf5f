// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes folio project tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/projectservice"
)

// Server wraps the MCP server with folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *projectservice.Service
}

// New creates a new MCP server with all folio tools registered.
func New(svc *projectservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the project templates available for new projects."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List known projects, favorites first, then most recently accessed."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project folder (type \"new\") or adopt an existing "+
			"directory (type \"existing\"). Read the layout guide first via the "+
			"get_project_format tool or the folio://project-format resource."),
		mcp.WithString("directory", mcp.Required(), mcp.Description("Parent directory for new projects, or the project directory itself for existing ones")),
		mcp.WithString("type", mcp.Required(), mcp.Description("\"new\" or \"existing\""), mcp.Enum("new", "existing")),
		mcp.WithString("name", mcp.Description("Display name; also the folder name for new projects")),
		mcp.WithString("template_id", mcp.Description("Optional template id from list_templates")),
		mcp.WithString("template_version", mcp.Description("Template version; required with template_id")),
	), s.createProject)

	s.mcp.AddTool(mcp.NewTool("open_project",
		mcp.WithDescription("Open a project directory and mark it as recently accessed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Project directory")),
	), s.openProject)

	s.mcp.AddTool(mcp.NewTool("get_assets",
		mcp.WithDescription("Return the project's file tree with the notes attached to each asset."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.getAssets)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Attach a free-text note to a file or folder of a project."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Asset path, absolute or relative to the project root")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
		mcp.WithString("author", mcp.Description("Optional author name")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through the notes of all projects."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store a file in a project from an http(s) URL or a base64 data URI."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data>")),
		mcp.WithString("dir", mcp.Description("Target directory relative to the project root")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
		mcp.WithBoolean("overwrite", mcp.Description("Replace an existing file of the same name")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_project_format",
		mcp.WithDescription("Returns the folio project layout guide."),
	), s.getProjectFormat)

	// Resource: project layout guide.
	s.mcp.AddResource(
		mcp.NewResource("folio://project-format", "Project Layout Guide",
			mcp.WithResourceDescription("How folio projects, descriptors, templates and notes are laid out."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProjectFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// optionalString returns the named argument, or "" when it is absent.
func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.Templates(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(entries)
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(projects)
}

func (s *Server) createProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := req.RequireString("directory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tmpl *models.TemplateRef
	if id := optionalString(req, "template_id"); id != "" {
		tmpl = &models.TemplateRef{ID: id, Version: optionalString(req, "template_version")}
		if !tmpl.Complete() {
			return mcp.NewToolResultError("template_version is required with template_id"), nil
		}
	}

	d, err := s.svc.Create(ctx, &models.CreateRequest{
		Directory: dir,
		Name:      optionalString(req, "name"),
		Type:      models.ProjectType(kind),
	}, tmpl)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) openProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Open(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open %s: %v", path, err)), nil
	}
	return jsonResult(d)
}

func (s *Server) getAssets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.svc.Assets(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tree)
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	uri, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.AddNote(ctx, id, projectservice.NoteInput{
		URI:     uri,
		Author:  optionalString(req, "author"),
		Content: content,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getProjectFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProjectFormatGuide), nil
}

func (s *Server) readProjectFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "folio://project-format",
			MIMEType: "text/markdown",
			Text:     ProjectFormatGuide,
		},
	}, nil
}
