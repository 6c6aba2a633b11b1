package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signin-dev/signin/internal/cli/client"
)

const envToken = "SIGNIN_TOKEN"

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	var token, serverAlias string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the account a token belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv(envToken)
			}
			if token == "" {
				return fmt.Errorf("token is required (use --token flag or %s env var)", envToken)
			}

			_, server, err := getSelectedServer(serverAlias)
			if err != nil {
				return err
			}

			var clientOpts []client.Option
			if server.Insecure {
				clientOpts = append(clientOpts, client.WithInsecure())
			}

			user, err := client.New(server.URL, clientOpts...).Me(cmd.Context(), token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User: %s (%s)\n", user.Name, user.Email)
			fmt.Fprintf(out, "Role: %s\n", user.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token printed by 'signin login --print-token' (or set "+envToken+")")
	cmd.Flags().StringVar(&serverAlias, "server", "", "Server alias or URL from signin.json")

	return cmd
}
