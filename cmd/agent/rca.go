package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/report"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/runstore"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/troubleshoot"
)

var rcaOpts troubleshoot.Options

var rcaCmd = &cobra.Command{
	Use:   "rca [call_id]",
	Short: "Post-call root cause analysis",
	Long: `Analyze the most recent call (or a specific call ID) and print an RCA report.

Logs are read from the ai_engine container, locally or over SSH when
--remote-host is set. With a remote host, engine audio taps and PBX
recordings for the call are copied into a fresh run directory and passed
through the WAV quality analyzer.

This is the recommended post-call troubleshooting command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := rcaOpts
		if opts.CallID == "" && len(args) == 1 {
			opts.CallID = args[0]
		}
		if opts.CallID == "" && !opts.Pick {
			opts.CallID = "last"
		}
		if opts.ForceLLM && opts.NoLLM {
			return fmt.Errorf("--llm and --no-llm are mutually exclusive")
		}
		return runRCA(cmd.Context(), opts)
	},
}

var rcaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent calls found in the engine logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := rcaOpts
		opts.List = true
		return runRCA(cmd.Context(), opts)
	},
}

var rcaRunsCmd = &cobra.Command{
	Use:   "runs [call_id]",
	Short: "Show previous rca runs and their directories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		st, err := runstore.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		callID := ""
		if len(args) == 1 {
			callID = args[0]
		}
		runs, err := st.Recent(cmd.Context(), callID, cfg.ListLimit)
		if err != nil {
			return err
		}

		p := report.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), verbose, noColor)
		if len(runs) == 0 {
			p.Println("No runs yet - run 'agent rca' first")
			return nil
		}
		p.Printf("%-17s %-20s %-7s %-6s %-6s %s\n", "CREATED", "CALL", "STATE", "ERRORS", "WARNS", "DIR")
		p.Println("──────────────────────────────────────────────────────────────────────────────")
		for _, r := range runs {
			p.Printf("%-17s %-20s %-7s %-6d %-6d %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				r.CallID,
				r.State,
				r.Errors,
				r.Warnings,
				r.WorkDir,
			)
		}
		return nil
	},
}

func init() {
	f := rcaCmd.Flags()
	f.StringVar(&rcaOpts.CallID, "call", "", "analyze specific call ID (default: last)")
	f.BoolVar(&rcaOpts.ForceLLM, "llm", false, "force LLM analysis (even for healthy calls)")
	f.BoolVar(&rcaOpts.NoLLM, "no-llm", false, "never call an LLM provider")
	f.BoolVar(&rcaOpts.CollectOnly, "collect-only", false, "collect evidence into a run directory and stop")
	f.BoolVarP(&rcaOpts.Interactive, "interactive", "i", false, "start a follow-up session after the report")
	f.BoolVar(&rcaOpts.Pick, "pick", false, "choose the call from a numbered list")

	pf := rcaCmd.PersistentFlags()
	pf.BoolVar(&rcaOpts.JSON, "json", false, "output as JSON (JSON only)")
	pf.String("container", "", "engine container name (default ai_engine)")
	pf.String("since", "", "log window to collect, e.g. 2h (default 72h)")
	pf.String("remote-host", "", "read logs and artifacts from this host over SSH")
	pf.String("remote-user", "", "SSH user for --remote-host")
	pf.String("remote-path", "", "project directory on the remote host")

	_ = settings.BindPFlag("container", pf.Lookup("container"))
	_ = settings.BindPFlag("collect-window", pf.Lookup("since"))
	_ = settings.BindPFlag("remote-host", pf.Lookup("remote-host"))
	_ = settings.BindPFlag("remote-user", pf.Lookup("remote-user"))
	_ = settings.BindPFlag("remote-path", pf.Lookup("remote-path"))

	rcaCmd.AddCommand(rcaListCmd, rcaRunsCmd)
	rootCmd.AddCommand(rcaCmd)
}

func runRCA(ctx context.Context, opts troubleshoot.Options) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	p := report.NewPrinter(nil, nil, verbose, noColor)

	runner, cleanup := newRunner(cfg, opts, p)
	defer cleanup()

	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return nil
}
