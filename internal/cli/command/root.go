package command

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/config"
	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/infra/buildinfo"
	"github.com/yndnr/respkv/internal/infra/tlsroots"
)

// ErrReply is returned when the server answers with an error reply. The
// reply itself has already been printed.
var ErrReply = errors.New("server returned an error reply")

const settingsKey = "settings"

// Settings are the effective CLI settings after merging flags, env and the
// config file.
type Settings struct {
	Server     string
	Format     output.Format
	Timeout    time.Duration
	ConfigPath string
	Config     *config.CLIConfig
	// TLS is nil for plaintext connections.
	TLS    *tls.Config
	CACert string
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "respkv-cli",
		Usage:   "command-line client for respkv",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			PingCommand(),
			GetCommand(),
			SetCommand(),
			REPLCommand(),
			ConfigCommand(),
		},
		Before: loadSettings,
		Action: runREPL,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (host:port)",
			EnvVars: []string{"RESPKV_SERVER"},
			Value:   config.Default().Server,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml",
			Value:   config.Default().Output,
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "timeout for connecting and for each command",
			Value:   config.Default().Timeout,
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect using TLS",
		},
		&cli.StringFlag{
			Name:  "cacert",
			Usage: "CA certificate file to verify the server (implies --tls)",
		},
		&cli.StringFlag{
			Name:  "sni",
			Usage: "server name for TLS verification (defaults to the host)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file",
			EnvVars: []string{"RESPKV_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
	}
}

// loadSettings reads the config file and applies explicitly set flags
// on top of it.
func loadSettings(c *cli.Context) error {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s := &Settings{
		Server:     cfg.Server,
		Timeout:    cfg.Timeout,
		ConfigPath: path,
		Config:     cfg,
	}
	if c.IsSet("server") {
		s.Server = c.String("server")
	}
	if c.IsSet("timeout") {
		s.Timeout = c.Duration("timeout")
	}
	format := cfg.Output
	if c.IsSet("output") {
		format = c.String("output")
	}
	if s.Format, err = output.ParseFormat(format); err != nil {
		return err
	}
	if err := s.resolveTLS(c, cfg); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[settingsKey] = s
	return nil
}

// resolveTLS builds the client TLS config. It stays nil when TLS is off.
func (s *Settings) resolveTLS(c *cli.Context, cfg *config.CLIConfig) error {
	enabled := cfg.TLS
	s.CACert = cfg.CACert
	if c.IsSet("tls") {
		enabled = c.Bool("tls")
	}
	if c.IsSet("cacert") {
		s.CACert = c.String("cacert")
		enabled = true
	}
	if !enabled {
		return nil
	}
	tlsCfg, err := tlsroots.ClientConfig(s.CACert, c.String("sni"))
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	s.TLS = tlsCfg
	return nil
}

// GetSettings retrieves the resolved settings from context.
func GetSettings(c *cli.Context) *Settings {
	if s, ok := c.App.Metadata[settingsKey].(*Settings); ok {
		return s
	}
	cfg := config.Default()
	return &Settings{Server: cfg.Server, Format: output.FormatText, Timeout: cfg.Timeout, Config: cfg}
}

func (s *Settings) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *Settings) dialOptions() *connection.DialOptions {
	return &connection.DialOptions{TLS: s.TLS}
}
