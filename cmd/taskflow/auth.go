package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/taskflow/internal/metrics"
	"github.com/sakif/taskflow/internal/session"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if email == "" && username == "" {
				return fmt.Errorf("provide --email or --username")
			}
			if password == "" {
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}

			user, err := a.session.Login(cmd.Context(), session.Credentials{
				Email:    email,
				Username: username,
				Password: password,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (%s)\n", metrics.UserDisplayName(user), user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted if omitted)")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newRegisterCommand(opts *rootOptions) *cobra.Command {
	var reg session.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if reg.Password == "" {
				reg.Password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}
			if reg.PasswordConfirm == "" {
				reg.PasswordConfirm = reg.Password
			}

			user, err := a.session.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s\n", metrics.UserDisplayName(user))
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Username, "username", "", "account username (required)")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&reg.Password, "password", "", "password (prompted if omitted)")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireSession(); err != nil {
				return err
			}
			user := a.session.User()
			fmt.Printf("%s <%s> role=%s id=%d\n",
				metrics.UserDisplayName(user), user.Email, user.Role, user.ID)

			if exp, err := a.session.TokenExpiry(cmd.Context()); err == nil {
				fmt.Printf("access token expires %s\n", exp.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
