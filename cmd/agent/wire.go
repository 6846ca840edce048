package main

import (
	"context"
	"errors"

	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/collect"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/config"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/correlate"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/discovery"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/llm"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/logsource"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/remote"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/report"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/runstore"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/shell"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/troubleshoot"
	"github.com/hkjarral/asterisk-ai-voice-agent/rca/internal/usage"
)

// loadSettings applies the project .env before resolving flags, RCA_*
// variables and the config file.
func loadSettings() (config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return config.Config{}, err
	}
	return config.Load(settings, configPath)
}

// newRunner assembles the pipeline for cfg. The returned cleanup closes the
// run store.
func newRunner(cfg config.Config, opts troubleshoot.Options, p *report.Printer) (*troubleshoot.Runner, func()) {
	cleanup := func() {}
	cmdRunner := shell.NewExecRunner(cfg.CommandTimeout)

	var (
		source   logsource.Source
		transfer remote.Transfer
	)
	if cfg.Remote() {
		target := remote.Target{User: cfg.RemoteUser, Host: cfg.RemoteHost, BasePath: cfg.RemotePath}
		source = logsource.NewSSHSource(cfg.Container, target, cmdRunner)
		transfer = remote.NewSSHTransfer(target, cmdRunner)
	} else {
		source = logsource.NewDockerSource(cfg.Container, cmdRunner)
	}
	p.Debugf("log source: %s", source.Name())
	if cfg.ConfigPath != "" {
		p.Debugf("config: %s", cfg.ConfigPath)
	}

	if opts.ListLimit == 0 {
		opts.ListLimit = cfg.ListLimit
	}
	if opts.CollectWindow == 0 {
		opts.CollectWindow = cfg.CollectWindow
	}

	rules := report.Rules{ErrorThreshold: cfg.ErrorThreshold, Container: cfg.Container}
	if agent, err := config.LoadAgentSnapshot(cfg.AgentConfig); err != nil {
		p.Debugf("agent config: %v", err)
	} else {
		rules.Agent = agent
	}

	r := &troubleshoot.Runner{
		Options: opts,
		Printer: p,
		Discoverer: &discovery.Discoverer{
			Source: source,
			Window: cfg.DiscoveryWindow,
			Debugf: p.Debugf,
		},
		Collector: &collect.Collector{
			Source:        source,
			Transfer:      transfer,
			OutputDir:     cfg.OutputDir,
			TapsDir:       cfg.TapsDir,
			RecordingsDir: cfg.RecordingsDir,
			MaxRecordings: cfg.MaxRecordings,
			Debugf:        p.Debugf,
		},
		Correlator: &correlate.Correlator{
			Analyzer: &correlate.ScriptAnalyzer{Runner: cmdRunner, Python: cfg.PythonBin, Script: cfg.AnalyzerScript},
			Usage:    usage.NewClient(cfg.DeepgramProjectID, cfg.DeepgramAPIKey),
			FrameMs:  cfg.FrameMs,
			Window:   cfg.CollectWindow,
		},
		Rules:    rules,
		FollowUp: report.StubFollowUp{Printer: p},
	}

	if client, err := llm.FromEnv(); err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			p.Debugf("llm: %v", err)
		}
	} else {
		r.Diagnoser = client
	}

	if st, err := runstore.Open(cfg.DBPath); err != nil {
		p.Debugf("run store: %v", err)
	} else {
		r.Runs = st
		cleanup = func() { _ = st.Close() }
	}

	if !cfg.Remote() {
		r.ContainerRunning = func(ctx context.Context) (bool, error) {
			return logsource.ContainerRunning(ctx, cmdRunner, cfg.Container)
		}
	}
	return r, cleanup
}
