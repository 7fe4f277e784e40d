package admin

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mike-seger/polaris-player-2-sub001/internal/session"
)

// Controller is the dispatcher surface the console drives. Operator commands
// always mint fresh command ids and broadcast with no exclusions.
type Controller interface {
	OperatorPlay(position float64)
	OperatorPause()
	OperatorSeek(position float64)
	OperatorSync()
	Sessions() []session.Info
}

const usage = `Console commands:
  play [seconds]   - play from position (default: 0)
  pause            - pause all clients
  seek <seconds>   - seek all clients to position
  sync             - force all clients back to 0
  list             - show connected clients
  help             - this help
`

// Console is the line-oriented operator interface. It reads commands from in
// (stdin in production) and drives the dispatcher through the same public
// contract the client handlers use. No input ever terminates the process.
type Console struct {
	controller Controller
	in         io.Reader
	out        io.Writer
}

func NewConsole(controller Controller, in io.Reader, out io.Writer) *Console {
	return &Console{controller: controller, in: in, out: out}
}

// Run processes lines until in is exhausted. Intended to run on its own
// goroutine; returns when stdin closes.
func (c *Console) Run() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.Execute(scanner.Text())
	}
}

// Execute handles a single console line.
func (c *Console) Execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	command, args := fields[0], fields[1:]

	switch command {
	case "play":
		c.controller.OperatorPlay(parsePosition(args, 0))
		fmt.Fprintln(c.out, "play sent")

	case "pause":
		c.controller.OperatorPause()
		fmt.Fprintln(c.out, "pause sent")

	case "seek":
		if len(args) == 0 {
			fmt.Fprintln(c.out, "usage: seek <seconds>")
			return
		}
		position, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fmt.Fprintf(c.out, "invalid position %q\n", args[0])
			return
		}
		c.controller.OperatorSeek(position)
		fmt.Fprintln(c.out, "seek sent")

	case "sync":
		c.controller.OperatorSync()
		fmt.Fprintln(c.out, "resync to 0 sent")

	case "list":
		infos := c.controller.Sessions()
		fmt.Fprintln(c.out, "Connected clients:")
		for _, info := range infos {
			fmt.Fprintf(c.out, "  %s - ready: %t, media: %t, time: %.2fs\n",
				info.ID, info.Ready, info.MediaReady, info.CurrentTime)
		}
		fmt.Fprintf(c.out, "Total: %d\n", len(infos))

	case "help":
		fmt.Fprint(c.out, usage)

	default:
		fmt.Fprintf(c.out, "unknown command %q, type 'help' for commands\n", command)
	}
}

// parsePosition returns the first arg as seconds, or fallback when absent or
// unparsable (mirrors lenient operator input handling).
func parsePosition(args []string, fallback float64) float64 {
	if len(args) == 0 {
		return fallback
	}
	position, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fallback
	}
	return position
}
