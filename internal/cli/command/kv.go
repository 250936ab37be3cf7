package command

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
	"github.com/yndnr/respkv/pkg/resp"
)

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Check that the server is alive",
		ArgsUsage: "[message]",
		Action: func(c *cli.Context) error {
			if c.NArg() > 1 {
				return usageError(c)
			}
			args := []string{"PING"}
			if c.NArg() == 1 {
				args = append(args, c.Args().First())
			}
			return send(c, args...)
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return usageError(c)
			}
			return send(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set the value of a key",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "px",
				Usage: "expire after this many milliseconds",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return usageError(c)
			}
			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			if c.IsSet("px") {
				// The server drops the connection on a bad expiry.
				px := c.Int64("px")
				if px <= 0 {
					return fmt.Errorf("invalid --px %d: must be a positive number of milliseconds", px)
				}
				args = append(args, "PX", strconv.FormatInt(px, 10))
			}
			return send(c, args...)
		},
	}
}

func usageError(c *cli.Context) error {
	return fmt.Errorf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
}

// send dials the configured server, runs one command and prints the reply.
func send(c *cli.Context, args ...string) error {
	s := GetSettings(c)

	ctx, cancel := s.withTimeout(c.Context)
	defer cancel()

	spinner := output.NewSpinner(c.App.ErrWriter, "connecting to "+s.Server)
	spinner.Start()
	client, err := connection.Dial(ctx, s.Server, s.dialOptions())
	spinner.Stop()
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Do(ctx, args...)
	if err != nil {
		return err
	}
	if err := output.NewFormatter(s.Format).Format(c.App.Writer, reply); err != nil {
		return err
	}
	if reply.Kind == resp.KindError {
		return ErrReply
	}
	return nil
}
