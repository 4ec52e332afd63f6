// Package mcpserver exposes the voice service to LLM clients over the Model
// Context Protocol. It registers the four voice tools on a stdio server and
// translates every tool failure into an error-flagged text result, so a
// client never sees a protocol-level error for a failed synthesis or upload.
package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/book-expert/voice-mcp-service/internal/core"
	"github.com/book-expert/voice-mcp-service/internal/synth"
)

// Tool names. These are the wire-visible identifiers clients call.
const (
	toolUploadReference = "upload_reference_audio"
	toolSynthesize      = "synthesize_speech"
	toolRecommendations = "get_parameter_recommendations"
	toolListReferences  = "list_references"
)

// Static errors.
var (
	ErrSynthesizerNil    = errors.New("synthesizer cannot be nil")
	ErrReferenceStoreNil = errors.New("reference store cannot be nil")
)

const (
	logFmtServerStarting = "Starting MCP server %s %s on stdio"
	errFmtServerStopped  = "mcp server stopped: %w"
)

// Synthesizer runs the synthesis pipeline for the speech tool.
type Synthesizer interface {
	Synthesize(ctx context.Context, request synth.Request) (synth.Result, error)
}

// Identity names the server towards MCP clients.
type Identity struct {
	Name    string
	Title   string
	Version string
}

// Server wires the voice tools onto an MCP stdio server.
type Server struct {
	mcpServer  *mcp.Server
	identity   Identity
	synthesis  Synthesizer
	references core.ReferenceStore
	log        *logger.Logger
}

// New creates the MCP server and registers all tools.
func New(
	identity Identity,
	synthesis Synthesizer,
	referenceStore core.ReferenceStore,
	log *logger.Logger,
) (*Server, error) {
	if synthesis == nil {
		return nil, ErrSynthesizerNil
	}

	if referenceStore == nil {
		return nil, ErrReferenceStoreNil
	}

	implementation := &mcp.Implementation{
		Name:    identity.Name,
		Title:   identity.Title,
		Version: identity.Version,
	}

	server := &Server{
		mcpServer:  mcp.NewServer(implementation, nil),
		identity:   identity,
		synthesis:  synthesis,
		references: referenceStore,
		log:        log,
	}

	server.registerTools()

	return server, nil
}

// registerTools declares the tool surface. Input schemas are inferred from
// the typed parameter structs and their mcp tags.
func (s *Server) registerTools() {
	uploadTool := &mcp.Tool{
		Name:        toolUploadReference,
		Title:       "Upload Reference Audio",
		Description: "Upload a reference voice sample (WAV audio plus its transcript) for voice cloning",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Upload Reference Audio",
			ReadOnlyHint:   false,
			IdempotentHint: false,
		},
	}
	mcp.AddTool(s.mcpServer, uploadTool, s.handleUploadReference)

	synthesizeTool := &mcp.Tool{
		Name:        toolSynthesize,
		Title:       "Synthesize Speech",
		Description: "Convert text to speech, optionally cloning an uploaded reference voice",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Synthesize Speech",
			ReadOnlyHint:   false,
			IdempotentHint: true,
		},
	}
	mcp.AddTool(s.mcpServer, synthesizeTool, s.handleSynthesizeSpeech)

	recommendationsTool := &mcp.Tool{
		Name:        toolRecommendations,
		Title:       "Parameter Recommendations",
		Description: "Get recommended synthesis parameters for a text and intended use case",
		Annotations: &mcp.ToolAnnotations{
			Title:          "Parameter Recommendations",
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	}
	mcp.AddTool(s.mcpServer, recommendationsTool, s.handleGetParameterRecommendations)

	listTool := &mcp.Tool{
		Name:        toolListReferences,
		Title:       "List Reference Voices",
		Description: "List all uploaded reference voices",
		Annotations: &mcp.ToolAnnotations{
			Title:          "List Reference Voices",
			ReadOnlyHint:   true,
			IdempotentHint: true,
		},
	}
	mcp.AddTool(s.mcpServer, listTool, s.handleListReferences)
}

// Run serves the MCP protocol on stdin/stdout until the context is cancelled
// or the client disconnects. Stdout belongs to the transport, so all
// diagnostics go to the file logger.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info(logFmtServerStarting, s.identity.Name, s.identity.Version)

	runErr := s.mcpServer.Run(ctx, &mcp.StdioTransport{})
	if runErr != nil {
		return fmt.Errorf(errFmtServerStopped, runErr)
	}

	return nil
}
