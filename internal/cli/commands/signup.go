package commands

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/signin-dev/signin/internal/cli/client"
)

type signupOptions struct {
	email    string
	password string
	name     string
	server   string
}

// NewSignupCmd creates the signup command
func NewSignupCmd() *cobra.Command {
	opts := signupOptions{}

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignup(cmd, opts, term.IsTerminal(int(syscall.Stdin)))
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set "+envEmail+")")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password, at least 8 characters (or set "+envPassword+")")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name")
	cmd.Flags().StringVar(&opts.server, "server", "", "Server alias or URL from signin.json")

	return cmd
}

func runSignup(cmd *cobra.Command, opts signupOptions, interactive bool) error {
	if opts.email == "" {
		opts.email = os.Getenv(envEmail)
	}
	if opts.password == "" {
		opts.password = os.Getenv(envPassword)
	}

	_, server, err := getSelectedServer(opts.server)
	if err != nil {
		return err
	}

	if opts.email == "" || opts.name == "" || opts.password == "" {
		if !interactive {
			return fmt.Errorf("email, name and password are required in non-interactive mode")
		}
		if err := promptSignup(cmd, &opts); err != nil {
			return err
		}
	}

	var clientOpts []client.Option
	if server.Insecure {
		clientOpts = append(clientOpts, client.WithInsecure())
	}
	apiClient := client.New(server.URL, clientOpts...)

	user, err := apiClient.Register(cmd.Context(), client.RegisterRequest{
		Email:    strings.TrimSpace(opts.email),
		Password: opts.password,
		Name:     opts.name,
	})
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Account created!")
	fmt.Fprintf(out, "  User: %s (%s)\n", user.Name, user.Email)
	fmt.Fprintln(out, "Run 'signin login' to sign in")

	return nil
}

func promptSignup(cmd *cobra.Command, opts *signupOptions) error {
	if opts.email == "" {
		prompt := promptui.Prompt{Label: "Email"}
		email, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		opts.email = email
	}

	if opts.name == "" {
		prompt := promptui.Prompt{Label: "Name"}
		name, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("failed to read name: %w", err)
		}
		opts.name = name
	}

	if opts.password == "" {
		out := cmd.OutOrStdout()
		fmt.Fprint(out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		opts.password = string(bytePassword)
	}

	return nil
}
