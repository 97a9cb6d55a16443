package command

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/galleryspace/relay/internal/model"
)

// Ops is the surface of core operations the interpreter drives. It is
// implemented by the relay dispatcher; the interpreter stays an external
// caller of the core rather than part of it.
type Ops interface {
	FindByName(name string) (model.SessionID, bool)
	SetSilenced(id model.SessionID, silenced bool)
	SetOpen(open bool)
	Disconnect(id model.SessionID)
	DisconnectAll()
	Announce(message string)
	Notify(id model.SessionID, message string)
	ParticipantCount() int
}

// Interpreter parses operator command lines issued by privileged sessions
// through chat. Errors are surfaced only to the issuer as informational
// notices and are never fatal.
type Interpreter struct {
	ops    Ops
	logger *slog.Logger
}

// New creates a new Interpreter
func New(ops Ops, logger *slog.Logger) *Interpreter {
	return &Interpreter{
		ops:    ops,
		logger: logger.With(slog.String("component", "command")),
	}
}

// Execute runs one command line of the form "/verb [args...]"
func (i *Interpreter) Execute(issuer model.SessionID, line string) {
	parts := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(parts) == 0 {
		return
	}
	verb := strings.ToLower(parts[0])
	args := parts[1:]

	i.logger.Info("operator command",
		slog.String("issuer", string(issuer)),
		slog.String("verb", verb))

	switch verb {
	case "kick":
		if target, ok := i.findTarget(issuer, args); ok {
			i.ops.Disconnect(target)
		}

	case "mute":
		if target, ok := i.findTarget(issuer, args); ok {
			i.ops.SetSilenced(target, true)
		}

	case "unmute":
		if target, ok := i.findTarget(issuer, args); ok {
			i.ops.SetSilenced(target, false)
		}

	case "god":
		i.ops.Announce(strings.Join(args, " "))

	case "nuke":
		i.ops.DisconnectAll()

	case "open":
		i.ops.SetOpen(true)
		i.ops.Notify(issuer, "Opening to new players")

	case "close":
		i.ops.SetOpen(false)
		i.ops.Notify(issuer, "Closing to new players")

	case "players":
		i.ops.Notify(issuer, fmt.Sprintf("%d players connected", i.ops.ParticipantCount()))
	}
}

// findTarget resolves the first argument to a session, notifying the issuer
// when no such participant exists
func (i *Interpreter) findTarget(issuer model.SessionID, args []string) (model.SessionID, bool) {
	if len(args) == 0 {
		i.ops.Notify(issuer, "I need a user name")
		return "", false
	}
	target, ok := i.ops.FindByName(args[0])
	if !ok {
		i.ops.Notify(issuer, "I can't find a user named "+args[0])
		return "", false
	}
	return target, true
}
