package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fitvtt/attrition/internal/attrition"
	"github.com/fitvtt/attrition/internal/parser"
	"github.com/fitvtt/attrition/pkg/core"
)

// bridge consumes the host's line protocol. Each line is a command followed
// by a JSON array of string arguments, mirroring how the VTT side serializes
// its hook payloads:
//
//	:TICK: ["86400","30"]
//	:ACTOR: ["a1","Bruenor","true","3","[\"u1\"]","[]"]
//	:CONSUME:FOOD: ["a1"]
type bridge struct {
	engine *engine
	parser *parser.Parser
	out    io.Writer
	log    *slog.Logger
}

func newBridge(e *engine, out io.Writer, log *slog.Logger) *bridge {
	return &bridge{
		engine: e,
		parser: parser.New(log),
		out:    out,
		log:    log,
	}
}

// Run reads commands until EOF or context cancellation. Command errors are
// logged and reported on the output stream; they never stop the loop.
func (b *bridge) Run(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := b.dispatch(line); err != nil {
			b.log.Error("command failed", "line", line, "error", err)
			fmt.Fprintf(b.out, ":ERROR: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		b.log.Error("reading host stream", "error", err)
	}
}

func (b *bridge) dispatch(line string) error {
	command, args, err := splitCommand(line)
	if err != nil {
		return err
	}

	switch command {
	case ":TICK:":
		tick, err := b.parser.ParseTick(args)
		if err != nil {
			return err
		}
		b.engine.world.SetTime(tick.Now)
		b.engine.ticks.Send(tick)
		return nil

	case ":AUTH:":
		b.engine.world.SetAuthoritative(len(args) > 0 && args[0] == "true")
		return nil

	case ":ACTOR:":
		actor, err := b.parser.ParseActor(args)
		if err != nil {
			return err
		}
		b.engine.world.UpsertActor(actor)
		if actor.PlayerOwned {
			return b.engine.service.InitializeActor(actor.ID)
		}
		return nil

	case ":ACTOR:REMOVE:":
		id, err := b.parser.ParseActorRef(args)
		if err != nil {
			return err
		}
		b.engine.world.RemoveActor(id)
		return nil

	case ":ACTOR:DELETE:":
		// actor gone from the world entirely; drop its tracking flags too
		id, err := b.parser.ParseActorRef(args)
		if err != nil {
			return err
		}
		b.engine.world.RemoveActor(id)
		return b.engine.service.UnsetActor(id)

	case ":SCENE:":
		ids := make([]core.ActorID, 0, len(args))
		for _, a := range args {
			ids = append(ids, core.ActorID(a))
		}
		b.engine.world.SetScene(ids)
		return b.engine.service.InitializeScene()

	case ":PLAYERS:":
		ids := make([]core.UserID, 0, len(args))
		for _, a := range args {
			ids = append(ids, core.UserID(a))
		}
		b.engine.world.SetPlayers(ids)
		return nil

	case ":CONSUME:FOOD:":
		id, err := b.parser.ParseActorRef(args)
		if err != nil {
			return err
		}
		return b.engine.service.ConsumeFood(id)

	case ":CONSUME:WATER:":
		id, err := b.parser.ParseActorRef(args)
		if err != nil {
			return err
		}
		return b.engine.service.ConsumeWater(id)

	case ":REST:":
		id, err := b.parser.ParseActorRef(args)
		if err != nil {
			return err
		}
		return b.engine.service.RestTaken(id)

	case ":ITEM:":
		change, err := b.parser.ParseItemChange(args)
		if err != nil {
			return err
		}
		return b.engine.service.HandleItemChange(change)

	case ":RESET:HUNGER:":
		id, err := b.parser.ParseActorRef(args)
		if err != nil {
			return err
		}
		return b.engine.service.ResetHunger(id)

	case ":ROSTER:":
		b.printRoster()
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// splitCommand separates the command token from its JSON argument array.
// Commands without arguments omit the array entirely.
func splitCommand(line string) (string, []string, error) {
	command, rest, found := strings.Cut(line, " ")
	if !found {
		return command, nil, nil
	}
	var args []string
	if err := json.Unmarshal([]byte(rest), &args); err != nil {
		return "", nil, fmt.Errorf("bad argument array for %s: %w", command, err)
	}
	return command, args, nil
}

func (b *bridge) printRoster() {
	writeRoster(b.out, b.engine.service.Roster())
}

// writeRoster renders the GM roster report, present actors first.
func writeRoster(out io.Writer, lines []attrition.RosterLine) {
	if len(lines) == 0 {
		fmt.Fprintln(out, "no tracked actors")
		return
	}
	for _, l := range lines {
		presence := "away"
		if l.Present {
			presence = "on scene"
		}
		fmt.Fprintf(out, "%-20s %-8s", l.Name, presence)
		for _, kind := range core.Kinds() {
			label, ok := l.Labels[kind]
			if !ok {
				continue
			}
			fmt.Fprintf(out, "  %s: %s (%s, %s)",
				kind, label, levelString(l.Levels[kind]), l.Elapsed[kind])
		}
		fmt.Fprintln(out)
	}
}

func levelString(level int) string {
	if level == 0 {
		return "ok"
	}
	return fmt.Sprintf("level %d", level)
}
