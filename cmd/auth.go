package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/session"
)

var (
	flagEmail    string
	flagPassword string
	flagRole     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.auth.Login(cmd.Context(), session.Credentials{
				Email:    flagEmail,
				Password: flagPassword,
			})
			return render(cmd, resp, func(w io.Writer) { authSummary(w, "Logged in", resp.Data.User) })
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			resp := a.auth.Register(cmd.Context(), session.Registration{
				Name:     flagName,
				Email:    flagEmail,
				Password: flagPassword,
				Role:     model.Role(flagRole),
			})
			return render(cmd, resp, func(w io.Writer) { authSummary(w, "Registered", resp.Data.User) })
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.session.Logout(); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			user, ok := a.session.CurrentUser()
			if !ok || !a.session.IsAuthenticated() {
				return errors.New("not logged in")
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), user)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s <%s>\n", user.Name, user.Email)
			fmt.Fprintf(w, "Role: %s\n", user.Role)
			fmt.Fprintf(w, "Home: %s\n", session.HomeFor(user.Role))
			if a.session.IsDemo() {
				fmt.Fprintln(w, "Session: demo")
			}
			return nil
		})
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts registered while the API was unreachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			emails, err := a.auth.DemoAccounts()
			if err != nil {
				return fmt.Errorf("listing demo accounts: %w", err)
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), emails)
			}
			if len(emails) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No demo accounts.")
				return nil
			}
			for _, e := range emails {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "account password")

	registerCmd.Flags().StringVar(&flagName, "name", "", "display name")
	registerCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&flagPassword, "password", "", "account password")
	registerCmd.Flags().StringVar(&flagRole, "role", string(model.RoleUser), "user or admin")
}

func authSummary(w io.Writer, verb string, u model.User) {
	fmt.Fprintf(w, "%s as %s <%s> (%s)\n", verb, u.Name, u.Email, u.Role)
}
