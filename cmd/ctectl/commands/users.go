package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/rpattn/ctedash/internal/auth"
	"github.com/rpattn/ctedash/internal/logging"
	"github.com/spf13/cobra"
)

var newUser auth.NewUserRequest

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage application logins",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a login bound to a tenant and provision the tenant table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd, func(ctx context.Context, service *auth.Service) error {
			user, err := service.CreateUser(ctx, newUser)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (tenant %s, admin %t)\n", user.Username, user.Tenant, user.IsAdmin)
			return nil
		})
	},
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd, func(ctx context.Context, service *auth.Service) error {
			users, err := service.ListUsers(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tTENANT\tADMIN\tCREATED")
			for _, user := range users {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", user.Username, user.Tenant, user.IsAdmin, user.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a login; the tenant's records are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd, func(ctx context.Context, service *auth.Service) error {
			if err := service.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	usersAddCmd.Flags().StringVar(&newUser.Username, "username", "", "login name (required)")
	usersAddCmd.Flags().StringVar(&newUser.Password, "password", "", "password (required)")
	usersAddCmd.Flags().StringVar(&newUser.Tenant, "tenant", "", "tenant table the login is bound to (required)")
	usersAddCmd.Flags().BoolVar(&newUser.IsAdmin, "admin", false, "grant access to every tenant")
	_ = usersAddCmd.MarkFlagRequired("username")
	_ = usersAddCmd.MarkFlagRequired("password")
	_ = usersAddCmd.MarkFlagRequired("tenant")

	usersCmd.AddCommand(usersAddCmd, usersListCmd, usersDeleteCmd)
	rootCmd.AddCommand(usersCmd)
}

func withAuthService(cmd *cobra.Command, fn func(context.Context, *auth.Service) error) error {
	ctx := operatorContext(cmd.Context())

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.close()
	if err := b.requireUsers(); err != nil {
		return err
	}

	return fn(ctx, auth.NewService(b.users, b.store, auth.NewHasher(0), logging.Component("auth")))
}
