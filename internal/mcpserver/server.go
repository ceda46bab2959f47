// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio storage tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/recordservice"
)

const formatURI = "folio://record-format"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp *server.MCPServer
	svc *recordservice.Service
}

// New creates a new MCP server with all Folio tools registered.
func New(svc *recordservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Folio",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("storage_status",
		mcp.WithDescription("Report whether local storage is enabled, which directory is bound "+
			"and which backend serves reads and writes."),
	), s.storageStatus)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List record names in a subdirectory."),
		mcp.WithString("subdir", mcp.Description("Subdirectory to list (default: records)")),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("read_record",
		mcp.WithDescription("Read a JSON record together with its checksum."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Record name without the .json extension")),
		mcp.WithString("subdir", mcp.Description("Subdirectory holding the record (default: records)")),
	), s.readRecord)

	s.mcp.AddTool(mcp.NewTool("save_record",
		mcp.WithDescription("Create or replace a JSON record. Read the format first via the "+
			"get_record_format tool or the "+formatURI+" resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Record name without the .json extension")),
		mcp.WithString("content", mcp.Required(), mcp.Description("JSON value to store")),
		mcp.WithString("subdir", mcp.Description("Subdirectory for the record (default: records)")),
		mcp.WithString("if_match", mcp.Description("Checksum the stored record must still have")),
	), s.saveRecord)

	s.mcp.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a JSON record."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Record name without the .json extension")),
		mcp.WithString("subdir", mcp.Description("Subdirectory holding the record (default: records)")),
	), s.deleteRecord)

	s.mcp.AddTool(mcp.NewTool("save_blob",
		mcp.WithDescription("Store a binary blob fetched from a data: URI or an http(s) URL. "+
			"Returns the blob address."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data: URI or http(s) URL of the content")),
		mcp.WithString("name", mcp.Description("Blob file name (derived from the URL when empty)")),
		mcp.WithString("subdir", mcp.Description("Subdirectory for the blob (default: blobs)")),
	), s.saveBlob)

	s.mcp.AddTool(mcp.NewTool("blob_address",
		mcp.WithDescription("Resolve the address of a stored blob."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Blob file name")),
		mcp.WithString("subdir", mcp.Description("Subdirectory holding the blob (default: blobs)")),
	), s.blobAddress)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the Folio record and blob layout. "+
			"Call this before writing records."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Record Format",
			mcp.WithResourceDescription("How Folio stores records and blobs."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

// toolError turns service errors into tool results. Only unexpected
// failures are returned as protocol errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, apperr.ErrCapabilityRequired):
		return mcp.NewToolResultError("no directory is bound: ask the user to select a directory"), nil
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found"), nil
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("record changed since it was read (checksum mismatch)"), nil
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) storageStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status())
}

func (s *Server) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.ListRecords(ctx, req.GetString("subdir", ""))
	if err != nil {
		return toolError(err)
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.GetRecord(ctx, req.GetString("subdir", ""), name)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(rec)
}

func (s *Server) saveRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !json.Valid([]byte(content)) {
		return mcp.NewToolResultError("content is not valid JSON"), nil
	}

	rec, err := s.svc.PutRecord(ctx, req.GetString("subdir", ""), name,
		json.RawMessage(content), req.GetString("if_match", ""))
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s/%s (checksum %s)", rec.Subdir, rec.Name, rec.Checksum)), nil
}

func (s *Server) deleteRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.DeleteRecord(ctx, req.GetString("subdir", ""), name); err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", name)), nil
}

func (s *Server) blobAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	addr, err := s.svc.BlobAddress(ctx, req.GetString("subdir", ""), name)
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(string(addr)), nil
}

func (s *Server) getRecordFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
