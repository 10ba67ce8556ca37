// Package mcp exposes the compatibility engine as an MCP server over stdio.
package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
)

// Server implements an MCP server over a line-delimited JSON-RPC stream
type Server struct {
	engine   *engine.Engine
	version  string
	handlers map[string]ToolHandler
	log      *logger.Logger
}

// ToolHandler is a function that handles a tool call
type ToolHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// JSON-RPC 2.0 types
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	Capabilities    struct {
		Tools     struct{} `json:"tools"`
		Resources struct{} `json:"resources"`
	} `json:"capabilities"`
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// New creates a new MCP server
func New(e *engine.Engine, version string, log *logger.Logger) *Server {
	s := &Server{
		engine:   e,
		version:  version,
		handlers: make(map[string]ToolHandler),
		log:      log.With("component", "MCP"),
	}
	s.registerHandlers()
	return s
}

// Serve reads requests from r and writes responses to w until r is
// exhausted or ctx is cancelled
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if response := s.handleMessage(ctx, []byte(line)); response != nil {
				output, merr := json.Marshal(response)
				if merr != nil {
					s.log.Error("failed to encode response", "error", merr)
				} else if _, werr := fmt.Fprintln(w, string(output)); werr != nil {
					return fmt.Errorf("write error: %w", werr)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, msg []byte) *jsonRPCResponse {
	var req jsonRPCRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse(nil, codeParseError, "Parse error")
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		return nil
	case "tools/list":
		return okResponse(req.ID, toolsListResult{Tools: ToolDefinitions})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return okResponse(req.ID, resourcesListResult{Resources: ResourceDefinitions})
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "Method not found")
	}
}

func (s *Server) handleInitialize(req jsonRPCRequest) *jsonRPCResponse {
	result := initializeResult{
		ProtocolVersion: "2024-11-05",
	}
	result.ServerInfo.Name = "matchcompat"
	result.ServerInfo.Version = s.version
	return okResponse(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req jsonRPCRequest) *jsonRPCResponse {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params")
	}

	handler, ok := s.handlers[params.Name]
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		s.log.Debug("tool call failed", "tool", params.Name, "error", err)
		return okResponse(req.ID, callToolResult{
			Content: []contentItem{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	var text string
	if str, ok := result.(string); ok {
		text = str
	} else {
		jsonBytes, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return okResponse(req.ID, callToolResult{
				Content: []contentItem{{Type: "text", Text: err.Error()}},
				IsError: true,
			})
		}
		text = string(jsonBytes)
	}

	return okResponse(req.ID, callToolResult{
		Content: []contentItem{{Type: "text", Text: text}},
	})
}

func (s *Server) handleResourcesRead(ctx context.Context, req jsonRPCRequest) *jsonRPCResponse {
	var params readResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "Invalid params")
	}

	text, err := s.handleReadResource(ctx, params.URI)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error())
	}

	return okResponse(req.ID, readResourceResult{
		Contents: []resourceContent{
			{
				URI:      params.URI,
				MimeType: "text/plain",
				Text:     text,
			},
		},
	})
}

func okResponse(id interface{}, result interface{}) *jsonRPCResponse {
	return &jsonRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id interface{}, code int, message string) *jsonRPCResponse {
	return &jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	}
}
