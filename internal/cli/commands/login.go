package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/signin-dev/signin/internal/cli/client"
	"github.com/signin-dev/signin/internal/cli/config"
	"github.com/signin-dev/signin/internal/cli/terminal"
	"github.com/signin-dev/signin/internal/flow"
	"github.com/signin-dev/signin/internal/session"
	"github.com/signin-dev/signin/internal/validation"
)

const (
	envEmail    = "SIGNIN_EMAIL"
	envPassword = "SIGNIN_PASSWORD"
)

var (
	errLoginFailed    = errors.New("login failed")
	errLoginCancelled = errors.New("login cancelled")
)

type loginOptions struct {
	email      string
	password   string
	server     string
	open       bool
	printToken bool
}

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	opts := loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an identity server",
		Long: `Sign in to an identity server.

The email is pre-checked before the password is sent. On success you are
taken to the landing page for your role.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, term.IsTerminal(int(syscall.Stdin)))
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "Email address (or set "+envEmail+")")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set "+envPassword+", will prompt if not provided)")
	cmd.Flags().StringVar(&opts.server, "server", "", "Server alias or URL from signin.json")
	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the landing page in a browser")
	cmd.Flags().BoolVar(&opts.printToken, "print-token", false, "Print the issued token (for use with 'signin whoami')")

	return cmd
}

func runLogin(cmd *cobra.Command, opts loginOptions, interactive bool) error {
	// Check for environment variables (useful for CI/CD)
	if opts.email == "" {
		opts.email = os.Getenv(envEmail)
	}
	if opts.password == "" {
		opts.password = os.Getenv(envPassword)
	}

	cfg, server, err := getSelectedServer(opts.server)
	if err != nil {
		return err
	}

	creds := flow.Credentials{Identifier: opts.email, Secret: opts.password}
	if creds.Identifier == "" || creds.Secret == "" {
		if !interactive {
			return fmt.Errorf("email and password are required in non-interactive mode (use --email/--password or %s/%s)", envEmail, envPassword)
		}
		if creds, err = promptCredentials(cmd.OutOrStdout(), creds); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	form, err := newLoginForm(cfg, server, out, opts.open, commandLogger(cmd))
	if err != nil {
		return err
	}
	defer form.Close()

	// Ctrl-C cancels the in-flight submission
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	fmt.Fprintf(out, "Signing in to %s (%s)\n", server.Alias, server.URL)

	for {
		outcome := form.Submit(ctx, creds)
		if outcome == flow.OutcomeSucceeded {
			user := form.store.Session().User
			fmt.Fprintf(out, "  User: %s (%s)\n", user.Name, user.Email)
			fmt.Fprintf(out, "  Role: %s\n", user.Role)
			if opts.printToken {
				fmt.Fprintf(out, "  Token: %s\n", form.authenticator.Token())
			}
			return nil
		}

		if ctx.Err() != nil {
			return errLoginCancelled
		}
		if !interactive {
			return errLoginFailed
		}

		// The form stays editable: keep the email, ask again
		creds.Secret = ""
		if creds, err = promptCredentials(out, creds); err != nil {
			return err
		}
	}
}

// loginForm is one login screen: a validation gate, a session store and the flow
// controller that drives them, bound to a single server
type loginForm struct {
	controller    *flow.Controller
	store         *session.Store
	authenticator *client.Authenticator
	unsubscribe   func()
}

func newLoginForm(cfg *config.Config, server *config.Server, out io.Writer, openBrowser bool, log zerolog.Logger) (*loginForm, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	var clientOpts []client.Option
	if server.Insecure {
		clientOpts = append(clientOpts, client.WithInsecure())
	}
	apiClient := client.New(server.URL, clientOpts...)

	gate := validation.NewGate(
		client.Prechecker{Client: apiClient},
		validation.WithEmailFormat(),
		validation.WithLogger(log),
	)

	authenticator := &client.Authenticator{Client: apiClient}
	storeOpts := []session.Option{session.WithLogger(log)}
	if timeout > 0 {
		storeOpts = append(storeOpts, session.WithTimeout(timeout))
	}
	store := session.NewStore(authenticator, storeOpts...)

	unsubscribe := store.Subscribe(func(s session.Session) {
		if s.IsLoading {
			fmt.Fprintln(out, "Logging in...")
		}
	})

	controller := flow.NewController(
		gate,
		store,
		terminal.NewNotifier(out),
		terminal.NewNavigator(out, server.URL, openBrowser),
		flow.WithRoutes(cfg.LandingRoutes()),
		flow.WithLogger(log),
	)

	return &loginForm{
		controller:    controller,
		store:         store,
		authenticator: authenticator,
		unsubscribe:   unsubscribe,
	}, nil
}

// Submit runs one submission and waits for it; cancelling ctx aborts it
func (f *loginForm) Submit(ctx context.Context, creds flow.Credentials) flow.Outcome {
	sub := f.controller.Start(ctx, creds)
	return sub.Wait()
}

func (f *loginForm) Close() {
	f.unsubscribe()
	f.store.Logout()
}

// promptCredentials asks for whatever is missing, offering the previous email as default
func promptCredentials(out io.Writer, creds flow.Credentials) (flow.Credentials, error) {
	prompt := promptui.Prompt{
		Label:   "Email",
		Default: creds.Identifier,
	}
	email, err := prompt.Run()
	if err != nil {
		return creds, fmt.Errorf("failed to read email: %w", err)
	}
	creds.Identifier = strings.TrimSpace(email)

	if creds.Secret == "" {
		fmt.Fprint(out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(out) // New line after password input
		if err != nil {
			return creds, fmt.Errorf("failed to read password: %w", err)
		}
		creds.Secret = string(bytePassword)
	}

	return creds, nil
}
