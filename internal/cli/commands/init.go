package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signin-dev/signin/internal/cli/config"
)

type initOptions struct {
	insecure bool
	out      io.Writer
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add an identity server to signin.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.out = cmd.OutOrStdout()
			return runInitWithOptions(args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.insecure, "insecure", false, "Skip TLS verification for this server")

	return cmd
}

func runInitWithOptions(args []string, opts *initOptions) error {
	out := opts.out
	if out == nil {
		out = os.Stdout
	}

	serverURL := strings.TrimRight(args[0], "/")
	candidate := config.Server{URL: serverURL, Insecure: opts.insecure}
	if err := candidate.CheckURL(); err != nil {
		return err
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintln(out, "Found existing signin.json")
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	if _, err := cfg.GetServerByURL(serverURL); err == nil {
		fmt.Fprintf(out, "Server %s already exists in signin.json\n", serverURL)
	} else {
		candidate.Alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		cfg.Servers = append(cfg.Servers, candidate)

		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Fprintf(out, "✓ Created ./signin.json with server %s (%s)\n", serverURL, candidate.Alias)
		} else {
			fmt.Fprintf(out, "✓ Added server %s (%s) to ./signin.json\n", serverURL, candidate.Alias)
		}
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Create the first super admin (POST /api/setup) or run 'signin signup'")
	fmt.Fprintln(out, "  2. Run 'signin login' to authenticate")

	return nil
}
