package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/messages"
)

// Session is the game state the console acts on.
type Session interface {
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
	Logout()
	Worlds(ctx context.Context) ([]game.World, error)
	JoinWorld(ctx context.Context, world game.ID) (*api.ActionResult, error)
	Collect(ctx context.Context, id game.ID) (*api.ActionResult, error)
	Talk(ctx context.Context, id game.ID) (*api.ActionResult, error)
	Objects() map[game.ID]*game.Object
	PlayerID() game.ID
}

// MessageList lists the floating messages.
type MessageList interface {
	List() []messages.Message
}

type commandFunc func(ctx context.Context, args []string) error

type command struct {
	usage string
	args  int
	run   commandFunc
}

// Console reads commands line by line and runs them against a session.
type Console struct {
	session  Session
	board    MessageList
	metrics  *api.Metrics
	in       *bufio.Reader
	out      io.Writer
	commands map[string]command
}

type ConsoleOpt func(*Console)

// WithMetrics makes request timings available to the "stats" command.
func WithMetrics(m *api.Metrics) ConsoleOpt {
	return func(c *Console) {
		c.metrics = m
	}
}

func NewConsole(session Session, board MessageList, in io.Reader, out io.Writer, opts ...ConsoleOpt) *Console {
	c := &Console{
		session: session,
		board:   board,
		in:      bufio.NewReader(in),
		out:     out,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.commands = map[string]command{
		"help":     {usage: "help", run: c.help},
		"login":    {usage: "login [username]", args: -1, run: c.login},
		"register": {usage: "register <username>", args: 1, run: c.register},
		"logout":   {usage: "logout", run: c.logout},
		"worlds":   {usage: "worlds", run: c.worlds},
		"join":     {usage: "join <world>", args: 1, run: c.join},
		"collect":  {usage: "collect <object>", args: 1, run: c.collect},
		"talk":     {usage: "talk <object>", args: 1, run: c.talk},
		"look":     {usage: "look", run: c.look},
		"messages": {usage: "messages", run: c.messages},
		"stats":    {usage: "stats", run: c.stats},
	}
	return c
}

// Start runs commands until ctx is done. When the input ends the console
// stops reading but Start keeps blocking until ctx is done.
func (c *Console) Start(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		if err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
}

// Run reads and runs commands until the input ends. It owns the input, prompts
// issued by commands read from it too.
func (c *Console) Run(ctx context.Context) error {
	for {
		line, err := c.in.ReadString('\n')
		if line != "" && ctx.Err() == nil {
			c.run(ctx, line)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading console input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Console) run(ctx context.Context, line string) {
	err := c.Exec(ctx, line)
	if err == nil {
		return
	}

	var ue *UserError
	if errors.As(err, &ue) {
		fmt.Fprintln(c.out, ue.Message)
		return
	}
	slog.WarnContext(ctx, "console command failed", "line", strings.TrimSpace(line), "error", err)
	fmt.Fprintf(c.out, "Error: %v\n", err)
}

// Exec runs a single command line.
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	cmd, ok := c.commands[name]
	if !ok {
		return NewUserError(fmt.Sprintf("Unknown command: %s", name))
	}
	if cmd.args >= 0 && len(args) != cmd.args {
		return NewUserError(fmt.Sprintf("Usage: %s", cmd.usage))
	}

	return cmd.run(ctx, args)
}

func (c *Console) help(ctx context.Context, args []string) error {
	for _, name := range slices.Sorted(maps.Keys(c.commands)) {
		fmt.Fprintf(c.out, "  %s\n", c.commands[name].usage)
	}
	return nil
}

func (c *Console) login(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return NewUserError("Usage: login [username]")
	}

	var username string
	if len(args) == 1 {
		username = args[0]
	} else {
		var err error
		username, err = Prompt(c.in, c.out, "Username: ", WithValidator(required("username")), WithMaxTries(3))
		if err != nil {
			return err
		}
	}

	password, err := Prompt(c.in, c.out, "Password: ", WithValidator(required("password")), WithMaxTries(3))
	if err != nil {
		return err
	}

	return c.session.Login(ctx, username, password)
}

func (c *Console) register(ctx context.Context, args []string) error {
	password, err := Prompt(c.in, c.out, "Password: ", WithValidator(required("password")), WithMaxTries(3))
	if err != nil {
		return err
	}
	return c.session.Register(ctx, args[0], password)
}

func (c *Console) logout(ctx context.Context, args []string) error {
	ok, err := PromptYN(c.in, c.out, "Really log out? ")
	if err != nil || !ok {
		return err
	}
	c.session.Logout()
	return nil
}

func (c *Console) worlds(ctx context.Context, args []string) error {
	worlds, err := c.session.Worlds(ctx)
	if err != nil {
		return err
	}
	if len(worlds) == 0 {
		fmt.Fprintln(c.out, "No worlds.")
		return nil
	}
	for _, w := range worlds {
		fmt.Fprintf(c.out, "  %-6s %s\n", w.ID, w.Name)
	}
	return nil
}

func (c *Console) join(ctx context.Context, args []string) error {
	res, err := c.session.JoinWorld(ctx, game.ID(args[0]))
	if err != nil {
		return err
	}
	c.result(res)
	return nil
}

func (c *Console) collect(ctx context.Context, args []string) error {
	res, err := c.session.Collect(ctx, game.ID(args[0]))
	if err != nil {
		return err
	}
	c.result(res)
	return nil
}

func (c *Console) talk(ctx context.Context, args []string) error {
	res, err := c.session.Talk(ctx, game.ID(args[0]))
	if err != nil {
		return err
	}
	c.result(res)
	return nil
}

func (c *Console) result(res *api.ActionResult) {
	if res != nil && res.Message != "" {
		fmt.Fprintln(c.out, res.Message)
	}
}

func (c *Console) look(ctx context.Context, args []string) error {
	objs := c.session.Objects()
	if len(objs) == 0 {
		fmt.Fprintln(c.out, "Nothing nearby.")
		return nil
	}

	self := c.session.PlayerID()
	for _, id := range slices.Sorted(maps.Keys(objs)) {
		o := objs[id]
		marker := " "
		if id == self {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %-6s %-18s %-20s %.5f,%.5f\n", marker, o.ID, o.Kind, o.Name, o.Latitude, o.Longitude)
	}
	return nil
}

func (c *Console) messages(ctx context.Context, args []string) error {
	msgs := c.board.List()
	if len(msgs) == 0 {
		fmt.Fprintln(c.out, "No messages.")
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(c.out, "[%s] %s\n", m.Class, m.Text)
	}
	return nil
}

func (c *Console) stats(ctx context.Context, args []string) error {
	if c.metrics == nil || c.metrics.Len() == 0 {
		fmt.Fprintln(c.out, "No requests yet.")
		return nil
	}
	fmt.Fprintf(c.out, "requests: %d last: %s min: %s max: %s avg: %s\n",
		c.metrics.Len(), c.metrics.Last(), c.metrics.Min(), c.metrics.Max(), c.metrics.Average())
	return nil
}
