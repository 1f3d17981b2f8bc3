package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/usercrud/internal/user"
	"github.com/dusk-indust/usercrud/internal/userapi"
)

const defaultServerURL = "http://localhost:3000"

// usersOptions holds flags shared by the users subcommands.
type usersOptions struct {
	Server  string
	Timeout time.Duration
}

func (o *usersOptions) client() *userapi.HTTPClient {
	return userapi.NewHTTPClient(o.Server, userapi.WithTimeout(o.Timeout))
}

func newUsersCommand() *cobra.Command {
	opts := &usersOptions{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users on a running server",
		Long: `Call the users API of a running server and print the results as JSON.

Example:
  usercrud users list
  usercrud users create --name Ana --email ana@x.com --age 29
  usercrud users update 1700000000000 --age 30
  usercrud users delete 1700000000000`,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", defaultServerURL, "base URL of the users API")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(
		newUsersListCommand(opts),
		newUsersGetCommand(opts),
		newUsersCreateCommand(opts),
		newUsersUpdateCommand(opts),
		newUsersDeleteCommand(opts),
		newUsersWatchCommand(opts),
	)
	return cmd
}

func newUsersListCommand(opts *usersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := opts.client().List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), users)
		},
	}
}

func newUsersGetCommand(opts *usersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			u, err := opts.client().Get(cmd.Context(), id)
			if err != nil {
				return describe(err, id)
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
}

func newUsersCreateCommand(opts *usersOptions) *cobra.Command {
	var (
		name  string
		email string
		age   int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := user.CreateInput{Name: name, Email: email}
			if cmd.Flags().Changed("age") {
				in.Age = user.NewAge(&age)
			}
			u, err := opts.client().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().IntVar(&age, "age", 0, "user age (0 stores no age)")
	return cmd
}

func newUsersUpdateCommand(opts *usersOptions) *cobra.Command {
	var (
		name     string
		email    string
		age      int
		clearAge bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change some fields of a user",
		Long:  "Only the flags given on the command line are sent; every other field keeps its value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			fields := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("name") {
				fields["name"] = name
			}
			if flags.Changed("email") {
				fields["email"] = email
			}
			if flags.Changed("age") {
				fields["age"] = age
			}
			if clearAge {
				fields["age"] = nil
			}

			u, err := opts.client().Update(cmd.Context(), id, fields)
			if err != nil {
				return describe(err, id)
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().IntVar(&age, "age", 0, "new age")
	cmd.Flags().BoolVar(&clearAge, "clear-age", false, "remove the stored age")
	cmd.MarkFlagsMutuallyExclusive("age", "clear-age")
	return cmd
}

func newUsersDeleteCommand(opts *usersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if err := opts.client().Delete(cmd.Context(), id); err != nil {
				return describe(err, id)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return err
		},
	}
}

func newUsersWatchCommand(opts *usersOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print changes to the collection as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The stream is long-lived, so the request timeout does not apply.
			client := userapi.NewHTTPClient(opts.Server, userapi.WithTimeout(0))
			events, err := client.Subscribe(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for ev := range events {
				if ev.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", ev.Err)
					continue
				}
				line, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(line))
			}
			return nil
		},
	}
}

func parseIDArg(s string) (int64, error) {
	id, err := user.ParseID(s)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

// describe adds the user id to not-found errors.
func describe(err error, id int64) error {
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("user %d: %w", id, err)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
