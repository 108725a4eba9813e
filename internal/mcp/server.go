package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "chat-gateway"

// AddTwoNumbersInput is the argument schema for the addTwoNumbers tool.
type AddTwoNumbersInput struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// NewServer builds the MCP server with the registered tool set. Every SSE
// session shares this server; each gets its own server session on connect.
func NewServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: version}, nil)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "addTwoNumbers",
		Description: "Add two numbers",
	}, addTwoNumbersHandler)
	return srv
}

func addTwoNumbersHandler(_ context.Context, _ *mcp.CallToolRequest, input AddTwoNumbersInput) (*mcp.CallToolResult, any, error) {
	sum := input.A + input.B
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("The sum of %v and %v is %v", input.A, input.B, sum),
			},
		},
	}, nil, nil
}
