package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/cli/connection"
	"github.com/yndnr/respkv/internal/cli/output"
)

// Config configures a REPL.
type Config struct {
	Input     io.Reader
	Output    io.Writer
	Manager   *connection.Manager
	Formatter output.Formatter
	History   *History
	// Timeout bounds each connect and command. Zero means no timeout.
	Timeout time.Duration
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	manager   *connection.Manager
	formatter output.Formatter
	completer *Completer
	history   *History
	timeout   time.Duration
}

// New creates a new REPL instance.
func New(cfg Config) *REPL {
	r := &REPL{
		input:     cfg.Input,
		output:    cfg.Output,
		manager:   cfg.Manager,
		formatter: cfg.Formatter,
		completer: NewCompleter(),
		history:   cfg.History,
		timeout:   cfg.Timeout,
	}
	if r.formatter == nil {
		r.formatter = &output.TextFormatter{}
	}
	if r.history == nil {
		r.history = NewHistory("")
	}
	if r.manager == nil {
		r.manager = connection.NewManager(nil)
	}
	return r
}

// Run reads lines until exit, EOF or ctx is cancelled. History is loaded
// on entry and saved on return.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.history.Load(); err != nil {
		fmt.Fprintf(r.output, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := r.history.Save(); err != nil {
			fmt.Fprintf(r.output, "warning: save history: %v\n", err)
		}
	}()

	reader := bufio.NewReader(r.input)
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(r.output, r.prompt())

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		line = strings.TrimSpace(line)
		if line != "" {
			r.history.Add(line)
			if line == "exit" || line == "quit" {
				return nil
			}
			if err := r.execute(ctx, line); err != nil {
				fmt.Fprintf(r.output, "(error) %v\n", err)
			}
		}

		if eof {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	if c, err := r.manager.Current(); err == nil {
		return c.Addr() + "> "
	}
	return "not connected> "
}

func (r *REPL) execute(ctx context.Context, line string) error {
	args, err := Tokenize(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "connect":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s", r.completer.Usage("connect"))
		}
		return r.connect(ctx, args[1])
	case "disconnect":
		return r.manager.Disconnect()
	case "help":
		r.help(args[1:])
		return nil
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return nil
	}

	client, err := r.manager.Current()
	if err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	reply, err := client.Do(ctx, args...)
	if err != nil {
		// A broken connection is dropped so the prompt reflects it.
		r.manager.Disconnect()
		return err
	}
	return r.formatter.Format(r.output, reply)
}

func (r *REPL) connect(ctx context.Context, addr string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	spinner := output.NewSpinner(r.output, "connecting to "+addr)
	spinner.Start()
	err := r.manager.Connect(ctx, addr)
	spinner.Stop()
	return err
}

func (r *REPL) help(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = args[0]
	}
	matches := r.completer.Complete(prefix)
	if len(matches) == 0 {
		fmt.Fprintf(r.output, "no command matches %q\n", prefix)
		return
	}
	for _, name := range matches {
		fmt.Fprintln(r.output, r.completer.Usage(name))
	}
}

func (r *REPL) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
