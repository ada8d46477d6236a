package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in to the analytics API. The password is read from --password, the
TUKEY_PASSWORD environment variable or, when neither is set, prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password = os.Getenv("TUKEY_PASSWORD")
			}
			if password == "" {
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			result := a.session.Login(cmd.Context(), email, password)
			if !result.Success {
				return errors.New(result.Error)
			}

			sess, _ := a.session.Current()
			if a.jsonOut {
				return a.printJSON(sess)
			}
			a.printf("Logged in as %s (%s)\n", sess.Name, sess.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

// readPassword prompts without echo on a terminal, otherwise reads one line
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("a password is required")
	}
	return line, nil
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			sess, ok := a.session.Current()
			if !ok {
				return a.requireSession()
			}
			if a.jsonOut {
				return a.printJSON(sess)
			}

			a.printf("%s <%s>\n", sess.Name, sess.Email)
			a.printf("role:         %s\n", sess.Role)
			a.printf("organization: %s\n", sess.Organization)
			a.printf("region:       %s\n", sess.Region)
			return nil
		},
	}
}
