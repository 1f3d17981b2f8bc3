package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/usercrud/internal/user"
	"github.com/dusk-indust/usercrud/internal/userapi"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// UserToolService adapts userapi.Service to MCP tool handlers.
type UserToolService struct {
	svc *userapi.Service
}

// NewUserToolService creates a UserToolService over svc.
func NewUserToolService(svc *userapi.Service) *UserToolService {
	return &UserToolService{svc: svc}
}

// notFound renders the not-found error the same way the HTTP API does.
func notFound(id int64) error {
	return fmt.Errorf("%s (id %d)", userapi.MsgNotFound, id)
}

// ListUsers returns the whole collection.
func (s *UserToolService) ListUsers(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListUsersInput,
) (*mcp.CallToolResult, ListUsersOutput, error) {
	users, err := s.svc.List(ctx)
	if err != nil {
		return nil, ListUsersOutput{}, fmt.Errorf("%s: %w", userapi.MsgListFailed, err)
	}
	return nil, ListUsersOutput{Users: users, Total: len(users)}, nil
}

// GetUser returns one user by id.
func (s *UserToolService) GetUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetUserInput,
) (*mcp.CallToolResult, UserOutput, error) {
	u, err := s.svc.Get(ctx, input.ID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, UserOutput{}, notFound(input.ID)
	}
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("%s: %w", userapi.MsgGetFailed, err)
	}
	return nil, UserOutput{User: *u}, nil
}

// CreateUser adds a user and returns it with its assigned id.
func (s *UserToolService) CreateUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateUserInput,
) (*mcp.CallToolResult, UserOutput, error) {
	u, err := s.svc.Create(ctx, user.CreateInput{
		Name:  input.Name,
		Email: input.Email,
		Age:   user.NewAge(input.Age),
	})
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("%s: %w", userapi.MsgCreateFailed, err)
	}
	return nil, UserOutput{User: *u}, nil
}

// UpdateUser merges the provided fields onto an existing user.
func (s *UserToolService) UpdateUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateUserInput,
) (*mcp.CallToolResult, UserOutput, error) {
	u, err := s.svc.Update(ctx, input.ID, input.patch())
	if errors.Is(err, user.ErrNotFound) {
		return nil, UserOutput{}, notFound(input.ID)
	}
	if err != nil {
		return nil, UserOutput{}, fmt.Errorf("%s: %w", userapi.MsgUpdateFailed, err)
	}
	return nil, UserOutput{User: *u}, nil
}

// DeleteUser removes a user.
func (s *UserToolService) DeleteUser(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteUserInput,
) (*mcp.CallToolResult, DeleteUserOutput, error) {
	err := s.svc.Delete(ctx, input.ID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, DeleteUserOutput{}, notFound(input.ID)
	}
	if err != nil {
		return nil, DeleteUserOutput{}, fmt.Errorf("%s: %w", userapi.MsgDeleteFailed, err)
	}
	return nil, DeleteUserOutput{ID: input.ID, Deleted: true}, nil
}
