package commands

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	var apiURL, token string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage portal users",
		Long:  "List, create, and delete portal users through the admin API",
	}

	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (default PORTAL_API_URL or http://localhost:8080)")
	cmd.PersistentFlags().StringVar(&token, "token", "", "Admin bearer token (default PORTAL_API_TOKEN)")

	cmd.AddCommand(newUsersListCmd(&apiURL, &token))
	cmd.AddCommand(newUsersCreateCmd(&apiURL, &token))
	cmd.AddCommand(newUsersDeleteCmd(&apiURL, &token))

	return cmd
}

func newUsersListCmd(apiURL, token *string) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(*apiURL, *token)
			if err != nil {
				return err
			}

			path := "/api/v1/users"
			if role != "" {
				path += "?role=" + url.QueryEscape(role)
			}

			var resp struct {
				Users []userPayload `json:"users"`
			}
			if err := client.do(http.MethodGet, path, nil, &resp); err != nil {
				return err
			}

			if len(resp.Users) == 0 {
				fmt.Println("No users found")
				return nil
			}

			for _, u := range resp.Users {
				fmt.Printf("  %s  %-14s %s  (created %s)\n", u.ID, u.Role, u.Email, u.CreatedAt)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role (admin, doctor, receptionist, patient)")

	return cmd
}

func newUsersCreateCmd(apiURL, token *string) *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff user (admin, doctor, or receptionist)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(*apiURL, *token)
			if err != nil {
				return err
			}

			body := map[string]string{
				"email":    email,
				"password": password,
				"role":     role,
			}

			var resp struct {
				Message string      `json:"message"`
				User    userPayload `json:"user"`
			}
			if err := client.do(http.MethodPost, "/api/v1/users", body, &resp); err != nil {
				return err
			}

			fmt.Printf("%s: %s (%s) id=%s\n", resp.Message, resp.User.Email, resp.User.Role, resp.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email (required)")
	cmd.Flags().StringVar(&password, "password", "", "User password (required)")
	cmd.Flags().StringVar(&role, "role", "", "User role: admin, doctor, or receptionist (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newUsersDeleteCmd(apiURL, token *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user from both the record table and the identity provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(*apiURL, *token)
			if err != nil {
				return err
			}

			var resp struct {
				Message string `json:"message"`
			}
			if err := client.do(http.MethodDelete, "/api/v1/users/"+url.PathEscape(args[0]), nil, &resp); err != nil {
				return err
			}

			fmt.Println(resp.Message)
			return nil
		},
	}

	return cmd
}
