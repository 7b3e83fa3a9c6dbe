package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/kbsearch/internal/registry"
	"github.com/Aman-CERP/kbsearch/internal/search"
	"github.com/Aman-CERP/kbsearch/pkg/kbsearch"
	"github.com/Aman-CERP/kbsearch/pkg/version"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Backend is the part of the engine the server exposes.
type Backend interface {
	Search(ctx context.Context, req search.Request) (*kbsearch.SearchResponse, error)
	List(ctx context.Context) ([]registry.KnowledgeBase, error)
	Status(ctx context.Context) (*kbsearch.Status, error)
}

var _ Backend = (*kbsearch.Engine)(nil)

// Server is the MCP server for kbsearch.
// It exposes knowledge base search to AI clients over JSON-RPC.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	logger  *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Keyword search across registered knowledge bases. Ranks documents with BM25 and handles English and Chinese text. Restrict to specific knowledge bases or directories when you know where the answer lives.",
	},
	{
		Name:        "list_knowledge_bases",
		Description: "List registered knowledge bases with their enabled state and document counts. Use it to pick knowledge base names for search.",
	},
	{
		Name:        "status",
		Description: "Summarize the registry: how many knowledge bases are enabled and how many documents are indexed.",
	},
}

// NewServer creates an MCP server over backend.
func NewServer(backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "kbsearch",
			Version: version.Short(),
		}, nil),
		backend: backend,
		logger:  logger,
	}
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "kbsearch", version.Short()
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with the given arguments.
// The search tool returns markdown; the others return their structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		input, err := searchInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		resp, err := s.search(ctx, input)
		if err != nil {
			return nil, err
		}
		return FormatSearchResults(resp), nil
	case "list_knowledge_bases":
		return s.list(ctx)
	case "status":
		return s.status(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpListHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	resp, err := s.search(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, toSearchOutput(resp), nil
}

func (s *Server) mcpListHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (
	*mcp.CallToolResult,
	ListOutput,
	error,
) {
	out, err := s.list(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) mcpStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	StatusOutput,
	error,
) {
	out, err := s.status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, *out, nil
}

func (s *Server) search(ctx context.Context, input SearchInput) (*kbsearch.SearchResponse, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, NewInvalidParamsError("query parameter is required")
	}

	reqID := generateRequestID()
	start := time.Now()
	resp, err := s.backend.Search(ctx, search.Request{
		Query:          input.Query,
		Bases:          input.KnowledgeBases,
		Limit:          clampLimit(input.Limit, defaultLimit, 1, maxLimit),
		IncludeSnippet: true,
		WithContent:    input.WithContent,
		Highlights:     input.Highlights,
		Dirs:           input.Dirs,
	})
	if err != nil {
		s.logger.Warn("search tool failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Debug("search tool complete",
		slog.String("request_id", reqID),
		slog.Int("results", resp.TotalResults),
		slog.Duration("duration", time.Since(start)))
	return resp, nil
}

func (s *Server) list(ctx context.Context) (*ListOutput, error) {
	kbs, err := s.backend.List(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	out := &ListOutput{KnowledgeBases: make([]KnowledgeBaseOutput, 0, len(kbs))}
	for _, kb := range kbs {
		out.KnowledgeBases = append(out.KnowledgeBases, toKnowledgeBaseOutput(kb))
	}
	return out, nil
}

func (s *Server) status(ctx context.Context) (*StatusOutput, error) {
	st, err := s.backend.Status(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	out := toStatusOutput(st)
	return &out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// searchInputFromArgs decodes loosely typed tool arguments.
func searchInputFromArgs(args map[string]any) (SearchInput, error) {
	var in SearchInput
	q, _ := args["query"].(string)
	in.Query = q

	switch v := args["limit"].(type) {
	case nil:
	case int:
		in.Limit = v
	case float64:
		in.Limit = int(v)
	default:
		return in, NewInvalidParamsError("limit must be a number")
	}

	var err error
	if in.KnowledgeBases, err = stringList(args, "knowledge_bases"); err != nil {
		return in, err
	}
	if in.Dirs, err = stringList(args, "dirs"); err != nil {
		return in, err
	}
	in.WithContent, _ = args["with_content"].(bool)
	in.Highlights, _ = args["highlights"].(bool)
	return in, nil
}

func stringList(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, NewInvalidParamsError(key + " must be a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, NewInvalidParamsError(key + " must be a list of strings")
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
