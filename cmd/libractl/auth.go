package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libranexus/internal/auth"
)

var loginAdmin bool

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and keep the session in the state file",
	Long: `Signs in with the given email. The password is read from the terminal
without echo, or from the first line of stdin when it is not a terminal.

With --admin the administrator endpoint is used and non-admin accounts are
refused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}

		login := app.auth.Login
		if loginAdmin {
			login = app.auth.LoginAdmin
		}
		user, err := login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
		return nil
	},
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session and empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.auth.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.requireLogin(); err != nil {
			return err
		}
		st := app.auth.Snapshot()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s>\n", st.Identity.Name, st.Identity.Email)
		fmt.Fprintf(out, "role:    %s\n", st.Identity.Role)
		fmt.Fprintf(out, "id:      %s\n", st.Identity.ID)
		if exp, ok := auth.TokenExpiry(st.Token); ok {
			left := time.Until(exp).Round(time.Minute)
			if left <= 0 {
				fmt.Fprintf(out, "token:   expired at %s\n", exp.Local().Format(time.RFC1123))
			} else {
				fmt.Fprintf(out, "token:   valid for %s\n", left)
			}
		}
		fmt.Fprintf(out, "cart:    %d book(s)\n", app.cart.Len())
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginAdmin, "admin", false, "sign in through the administrator endpoint")
}
