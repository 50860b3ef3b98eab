package listener

import (
	"context"
	"io"
	"log/slog"

	"github.com/pixil98/go-geoquest/internal/console"
)

const greeting = "geoquest console. Type 'help' for commands.\n"

// ConnectionManager runs a console for every remote connection. All consoles
// act on the same session.
type ConnectionManager struct {
	session console.Session
	board   console.MessageList
	opts    []console.ConsoleOpt
}

func NewConnectionManager(session console.Session, board console.MessageList, opts ...console.ConsoleOpt) *ConnectionManager {
	return &ConnectionManager{
		session: session,
		board:   board,
		opts:    opts,
	}
}

func (m *ConnectionManager) AcceptConnection(ctx context.Context, conn io.ReadWriter) {
	if _, err := io.WriteString(conn, greeting); err != nil {
		slog.WarnContext(ctx, "writing console greeting", "error", err)
		return
	}

	c := console.NewConsole(m.session, m.board, conn, conn, m.opts...)
	if err := c.Run(ctx); err != nil {
		slog.WarnContext(ctx, "console session", "error", err)
	}
}
