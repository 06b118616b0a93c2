package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	mal "github.com/rphilander/mal/core"
)

// bridge forwards MCP tool calls to a mal server over one connection.
type bridge struct {
	conn net.Conn
	mu   sync.Mutex
}

// send sends a request to the mal server and returns the response.
func (b *bridge) send(req map[string]any) (map[string]any, error) {
	req["id"] = mal.NextID()
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := mal.WriteMsg(b.conn, req); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	resp, err := mal.ReadMsg(b.conn)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return resp, nil
}

// formatResult turns a server response into an MCP tool result.
func formatResult(resp map[string]any) (*mcp.CallToolResult, error) {
	ok, _ := resp["ok"].(bool)
	if !ok {
		errMsg, _ := resp["error"].(string)
		if errMsg == "" {
			errMsg = "unknown error"
		}
		if kind, _ := resp["kind"].(string); kind != "" {
			errMsg = kind + ": " + errMsg
		}
		return mcp.NewToolResultError(errMsg), nil
	}
	if s, isStr := resp["value"].(string); isStr {
		return mcp.NewToolResultText(s), nil
	}
	out, err := json.MarshalIndent(resp["value"], "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (b *bridge) forward(req map[string]any) (*mcp.CallToolResult, error) {
	resp, err := b.send(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return formatResult(resp)
}

func (b *bridge) handleEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr, err := request.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return b.forward(map[string]any{
		"op":      "eval",
		"expr":    expr,
		"session": request.GetString("session", ""),
	})
}

func (b *bridge) handleOpenSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{"op": "open"})
}

func (b *bridge) handleTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{
		"op":        "traces",
		"session":   request.GetString("session", ""),
		"n":         float64(request.GetInt("n", 0)),
		"persisted": request.GetBool("persisted", false),
	})
}

func (b *bridge) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return b.forward(map[string]any{
		"op":      "reset",
		"session": request.GetString("session", ""),
	})
}

func main() {
	sockPath := os.Getenv("MAL_SOCK")
	if sockPath == "" {
		sockPath = mal.DefaultConfig().Socket
	}

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		log.Fatalf("connect to %s: %v", sockPath, err)
	}
	defer conn.Close()
	log.Printf("connected to mal server: %s", sockPath)
	b := &bridge{conn: conn}

	s := server.NewMCPServer(
		"mal",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("mal_eval",
			mcp.WithDescription("Evaluate mal source text in a session. Every form is evaluated in order; the printed value of the last one is returned."),
			mcp.WithString("expr",
				mcp.Required(),
				mcp.Description("Source text, e.g. (def! sq (fn* (x) (* x x))) (sq 7)"),
			),
			mcp.WithString("session",
				mcp.Description("Session id from mal_open_session; omit for the default session"),
			),
		),
		b.handleEval,
	)

	s.AddTool(
		mcp.NewTool("mal_open_session",
			mcp.WithDescription("Create a fresh session with its own global environment. Returns the session id."),
		),
		b.handleOpenSession,
	)

	s.AddTool(
		mcp.NewTool("mal_traces",
			mcp.WithDescription("List recent evaluations of a session with their results or errors."),
			mcp.WithString("session",
				mcp.Description("Session id; omit for the default session"),
			),
			mcp.WithNumber("n",
				mcp.Description("How many of the most recent traces to return; 0 for all"),
			),
			mcp.WithBoolean("persisted",
				mcp.Description("Read the stored history instead of the in-memory ring"),
			),
		),
		b.handleTraces,
	)

	s.AddTool(
		mcp.NewTool("mal_reset",
			mcp.WithDescription("Drop every binding, trace and stored definition of a session."),
			mcp.WithString("session",
				mcp.Description("Session id; omit for the default session"),
			),
		),
		b.handleReset,
	)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
