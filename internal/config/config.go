// Package config resolves the rca command's settings from flags, RCA_*
// environment variables, an optional YAML file and the project .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultContainer       = "ai_engine"
	defaultDiscoveryWindow = 24 * time.Hour
	defaultCollectWindow   = 72 * time.Hour
	defaultCommandTimeout  = 60 * time.Second
	defaultRemotePath      = "/root/Asterisk-AI-Voice-Agent"
	defaultRecordingsDir   = "/var/spool/asterisk/monitor"
	defaultTapsDir         = "/tmp/ai-engine-taps"
	defaultMaxRecordings   = 3
	defaultFrameMs         = 20
	defaultAnalyzerScript  = "scripts/wav_quality_analyzer.py"
	defaultPythonBin       = "python3"
	defaultOutputDir       = "logs/remote"
	defaultDBPath          = "logs/rca-runs.db"
	defaultAgentConfig     = "config/ai-agent.yaml"
	defaultListLimit       = 20
	defaultErrorThreshold  = 10
)

// Config holds every tunable the rca pipeline reads.
type Config struct {
	Container       string        `mapstructure:"container"`
	DiscoveryWindow time.Duration `mapstructure:"discovery-window"`
	CollectWindow   time.Duration `mapstructure:"collect-window"`
	CommandTimeout  time.Duration `mapstructure:"command-timeout"`

	RemoteHost string `mapstructure:"remote-host"`
	RemoteUser string `mapstructure:"remote-user"`
	RemotePath string `mapstructure:"remote-path"`

	RecordingsDir  string `mapstructure:"recordings-dir"`
	TapsDir        string `mapstructure:"taps-dir"`
	MaxRecordings  int    `mapstructure:"max-recordings"`
	FrameMs        int    `mapstructure:"frame-ms"`
	AnalyzerScript string `mapstructure:"analyzer-script"`
	PythonBin      string `mapstructure:"python-bin"`
	OutputDir      string `mapstructure:"output-dir"`
	DBPath         string `mapstructure:"db-path"`

	DeepgramProjectID string `mapstructure:"deepgram-project-id"`
	DeepgramAPIKey    string `mapstructure:"deepgram-api-key"`

	AgentConfig    string `mapstructure:"agent-config"`
	ListLimit      int    `mapstructure:"list-limit"`
	ErrorThreshold int    `mapstructure:"error-threshold"`

	ConfigPath string `mapstructure:"-"`
}

// Remote reports whether a remote host has been configured.
func (c Config) Remote() bool {
	return strings.TrimSpace(c.RemoteHost) != ""
}

// New returns a viper instance with defaults and env bindings applied, so
// callers can bind flags before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("RCA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("container", defaultContainer)
	v.SetDefault("discovery-window", defaultDiscoveryWindow)
	v.SetDefault("collect-window", defaultCollectWindow)
	v.SetDefault("command-timeout", defaultCommandTimeout)
	v.SetDefault("remote-host", "")
	v.SetDefault("remote-user", "")
	v.SetDefault("remote-path", defaultRemotePath)
	v.SetDefault("recordings-dir", defaultRecordingsDir)
	v.SetDefault("taps-dir", defaultTapsDir)
	v.SetDefault("max-recordings", defaultMaxRecordings)
	v.SetDefault("frame-ms", defaultFrameMs)
	v.SetDefault("analyzer-script", defaultAnalyzerScript)
	v.SetDefault("python-bin", defaultPythonBin)
	v.SetDefault("output-dir", defaultOutputDir)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("deepgram-project-id", "")
	v.SetDefault("deepgram-api-key", "")
	v.SetDefault("agent-config", defaultAgentConfig)
	v.SetDefault("list-limit", defaultListLimit)
	v.SetDefault("error-threshold", defaultErrorThreshold)

	// Older deployments export these without the RCA_ prefix.
	_ = v.BindEnv("collect-window", "RCA_COLLECT_WINDOW", "RCA_LOG_SINCE")
	_ = v.BindEnv("deepgram-project-id", "RCA_DEEPGRAM_PROJECT_ID", "DEEPGRAM_PROJECT_ID")
	_ = v.BindEnv("deepgram-api-key", "RCA_DEEPGRAM_API_KEY", "DEEPGRAM_API_KEY")
	return v
}

// Load reads configPath (or ~/.config/agent/rca.yml) into v and decodes the
// result. A missing file is not an error.
func Load(v *viper.Viper, configPath string) (Config, error) {
	var cfg Config

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".config", "agent", "rca.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("invalid command-timeout: %s", c.CommandTimeout)
	}
	if c.DiscoveryWindow <= 0 {
		return fmt.Errorf("invalid discovery-window: %s", c.DiscoveryWindow)
	}
	if c.CollectWindow <= 0 {
		return fmt.Errorf("invalid collect-window: %s", c.CollectWindow)
	}
	if c.FrameMs <= 0 {
		return fmt.Errorf("invalid frame-ms: %d", c.FrameMs)
	}
	if c.MaxRecordings < 0 {
		return fmt.Errorf("invalid max-recordings: %d", c.MaxRecordings)
	}
	if c.Remote() && strings.ContainsAny(c.RemoteHost, " \t/") {
		return fmt.Errorf("invalid remote-host: %q", c.RemoteHost)
	}
	return nil
}
