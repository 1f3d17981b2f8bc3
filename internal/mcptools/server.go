// Package mcptools exposes the user collection as Model Context Protocol
// tools, backed by the same userapi.Service as the HTTP API.
package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/dusk-indust/usercrud/internal/userapi"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewUserMCPServer creates an MCP server with the five user tools registered.
func NewUserMCPServer(svc *userapi.Service) *mcp.Server {
	tools := NewUserToolService(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "usercrud",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_users",
		Description: "List every stored user in insertion order.",
	}, tools.ListUsers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_user",
		Description: "Fetch a single user by numeric id.",
	}, tools.GetUser)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_user",
		Description: "Create a user from a name, an email and an optional age. The id is assigned by the server.",
	}, tools.CreateUser)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_user",
		Description: "Update some fields of an existing user. Fields that are omitted keep their values; the id never changes.",
	}, tools.UpdateUser)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_user",
		Description: "Delete a user by numeric id.",
	}, tools.DeleteUser)

	return server
}

// RunMCPServer serves the user tools over streamable HTTP on addr until ctx
// is cancelled.
func RunMCPServer(ctx context.Context, svc *userapi.Service, addr string) error {
	server := NewUserMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the user tools on stdio, blocking until stdin is
// closed or ctx is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *userapi.Service) error {
	return NewUserMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
