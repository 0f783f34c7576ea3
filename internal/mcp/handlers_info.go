package mcp

import (
	"context"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetServerInfoParams for the get_server_info tool (takes no arguments)
type GetServerInfoParams struct{}

// handleGetServerInfo answers locally without touching the Manus API.
func (s *Server) handleGetServerInfo(ctx context.Context, req *mcp_sdk.CallToolRequest, params GetServerInfoParams) (*mcp_sdk.CallToolResult, any, error) {
	s.recordLocal("get_server_info")

	return nil, map[string]any{
		"server_name":    "manus-mcp",
		"version":        s.version,
		"description":    "MCP bridge exposing the Manus AI task API as tools",
		"manus_api_base": s.cfg.APIBase,
		"agent_profile":  s.cfg.AgentProfile,
	}, nil
}
