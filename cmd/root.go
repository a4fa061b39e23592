package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"github.com/polyxo/gridctl/internal/api"
	"github.com/polyxo/gridctl/internal/config"
)

// cfg holds the effective configuration: config file values overridden by
// whichever persistent flags were set, populated in PersistentPreRunE.
var cfg config.Config

var (
	flagEndpoint string
	flagOutput   string
	flagDebug    bool
)

var rootCmd = &cobra.Command{
	Use:           "gridctl",
	Short:         "Monitor and manage a gridd compute cluster",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		// Flags win over the config file.
		if cmd.Flags().Changed("endpoint") {
			cfg.Endpoint = flagEndpoint
		}
		if cmd.Flags().Changed("output") {
			cfg.Output = flagOutput
		}
		if cmd.Flags().Changed("debug") {
			cfg.Debug = flagDebug
		}
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if cfg.Debug {
			fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newClient builds the API client for the configured endpoint.
func newClient() (*api.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("no cluster endpoint configured; pass --endpoint or run `gridctl config set endpoint <url>`")
	}
	return api.NewClient(cfg.Endpoint), nil
}

// outputFormat resolves the effective output format: "auto" renders a table
// on a terminal and JSON when piped.
func outputFormat() string {
	if cfg.Output == "" || cfg.Output == "auto" {
		if term.IsTerminal(os.Stdout.Fd()) {
			return "table"
		}
		return "json"
	}
	return cfg.Output
}

// promptLine reads one line from stdin, for interactive session-id prompts.
// Fails when stdin is not a terminal so scripts never hang on a hidden prompt.
func promptLine(message string) (string, error) {
	if !term.IsTerminal(os.Stdin.Fd()) {
		return "", errors.New("cannot prompt: stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "%s: ", message)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(message string) bool {
	answer, err := promptLine(message + " [y/N]")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "cluster control plane endpoint, e.g. http://localhost:5001")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "auto", "output format: json, yaml, table, or auto")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "print full error chains")
}
