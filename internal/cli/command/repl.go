package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/internal/cli/repl"
)

// REPLCommand returns the repl command.
func REPLCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start interactive mode",
		Action: runREPL,
	}
}

// runREPL connects to the configured server and starts the REPL. A failed
// connect is reported and the REPL starts disconnected.
func runREPL(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown command %q", c.Args().First())
	}
	s := GetSettings(c)

	mgr := connection.NewManager(s.dialOptions())
	defer mgr.Disconnect()

	ctx, cancel := s.withTimeout(c.Context)
	err := mgr.Connect(ctx, s.Server)
	cancel()
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", err)
	}

	r := repl.New(repl.Config{
		Input:     c.App.Reader,
		Output:    c.App.Writer,
		Manager:   mgr,
		Formatter: output.NewFormatter(s.Format),
		History:   repl.NewHistory(s.Config.HistoryPath()),
		Timeout:   s.Timeout,
	})
	return r.Run(c.Context)
}
