package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/signin-dev/signin/internal/cli/config"
	"github.com/signin-dev/signin/internal/cli/serverselect"
	"github.com/signin-dev/signin/internal/logger"
)

// getSelectedServer loads the config and returns it with the server to talk to.
// serverAlias may be empty, in which case the saved or only server is used.
func getSelectedServer(serverAlias string) (*config.Config, *config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w\nRun 'signin init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, serverAlias)
	if err != nil {
		return nil, nil, err
	}

	if err := server.CheckURL(); err != nil {
		return nil, nil, err
	}

	return cfg, server, nil
}

// commandLogger writes debug logs to stderr when --verbose is set
func commandLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil || !verbose {
		return zerolog.Nop()
	}
	return logger.New(cmd.ErrOrStderr(), "debug", "console")
}
