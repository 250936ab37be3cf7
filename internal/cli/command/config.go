package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.yaml.in/yaml/v3"

	"github.com/yndnr/respkv/internal/cli/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI configuration commands",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:  "init",
				Usage: "Write the effective configuration to the config file",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing file",
					},
				},
				Action: configInit,
			},
		},
	}
}

func effectiveConfig(s *Settings) *config.CLIConfig {
	return &config.CLIConfig{
		Server:  s.Server,
		Output:  string(s.Format),
		Timeout: s.Timeout,
		TLS:     s.TLS != nil,
		CACert:  s.CACert,
		History: s.Config.History,
	}
}

func configShow(c *cli.Context) error {
	s := GetSettings(c)
	fmt.Fprintf(c.App.Writer, "# %s\n", s.ConfigPath)
	enc := yaml.NewEncoder(c.App.Writer)
	if err := enc.Encode(effectiveConfig(s)); err != nil {
		return err
	}
	return enc.Close()
}

func configInit(c *cli.Context) error {
	s := GetSettings(c)
	if !c.Bool("force") {
		if _, err := os.Stat(s.ConfigPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", s.ConfigPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := config.Save(effectiveConfig(s), s.ConfigPath); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", s.ConfigPath)
	return nil
}
