package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/config"
)

// Build variables - set by ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose    bool
	noColor    bool
	configPath string

	settings = config.New()
)

// errReported marks failures the command already explained to the user.
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:           "agent",
	Short:         "Asterisk AI Voice Agent operator CLI",
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print [DEBUG] diagnostics to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/agent/rca.yml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errReported):
		os.Exit(1)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Interrupted")
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
