package mcptools

import "github.com/dusk-indust/usercrud/internal/user"

// ListUsersInput is the input for the list_users MCP tool.
type ListUsersInput struct{}

// ListUsersOutput is the result of the list_users MCP tool.
type ListUsersOutput struct {
	Users []user.User `json:"users"`
	Total int         `json:"total"`
}

// GetUserInput is the input for the get_user MCP tool.
type GetUserInput struct {
	ID int64 `json:"id" jsonschema:"numeric id of the user"`
}

// UserOutput wraps a single record returned by get_user, create_user and
// update_user.
type UserOutput struct {
	User user.User `json:"user"`
}

// CreateUserInput is the input for the create_user MCP tool.
type CreateUserInput struct {
	Name  string `json:"name" jsonschema:"display name of the user"`
	Email string `json:"email,omitempty" jsonschema:"email address of the user"`
	Age   *int   `json:"age,omitempty" jsonschema:"age in years; omit or 0 for unknown"`
}

// UpdateUserInput is the input for the update_user MCP tool. Omitted fields
// keep their stored values.
type UpdateUserInput struct {
	ID       int64   `json:"id" jsonschema:"numeric id of the user to update"`
	Name     *string `json:"name,omitempty" jsonschema:"new display name"`
	Email    *string `json:"email,omitempty" jsonschema:"new email address"`
	Age      *int    `json:"age,omitempty" jsonschema:"new age in years"`
	ClearAge bool    `json:"clearAge,omitempty" jsonschema:"set to true to forget the stored age"`
}

// DeleteUserInput is the input for the delete_user MCP tool.
type DeleteUserInput struct {
	ID int64 `json:"id" jsonschema:"numeric id of the user to delete"`
}

// DeleteUserOutput is the result of the delete_user MCP tool.
type DeleteUserOutput struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

// patch converts the tool input into the shallow merge applied by the
// service.
func (in UpdateUserInput) patch() user.Patch {
	p := user.Patch{Name: in.Name, Email: in.Email}
	switch {
	case in.ClearAge:
		p.AgeSet = true
	case in.Age != nil:
		p.AgeSet = true
		p.AgeValue = in.Age
	}
	return p
}
