package events

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gookit/color"
)

// ConsoleSink prints a human readable, colored line per event. test_log
// events are only printed when Verbose is set.
type ConsoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	plain   bool
	Verbose bool
}

// NewConsoleSink creates a ConsoleSink writing to w. With plain set no
// color escapes are written.
func NewConsoleSink(w io.Writer, plain bool) *ConsoleSink {
	return &ConsoleSink{w: w, plain: plain}
}

var (
	styleInfo = color.New(color.FgCyan)
	styleOK   = color.New(color.FgGreen, color.OpBold)
	styleFail = color.New(color.FgRed, color.OpBold)
	styleSkip = color.New(color.FgYellow)
	styleDim  = color.New(color.FgGray)
)

// Emit implements Sink.
func (c *ConsoleSink) Emit(_ context.Context, e Event) {
	line, style := c.render(e)
	if line == "" {
		return
	}
	if !c.plain {
		line = style.Sprint(line)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func (c *ConsoleSink) render(e Event) (string, color.Style) {
	p := e.Payload
	switch e.Name {
	case RunStarted:
		return fmt.Sprintf("▶ run %s started (%v tests)", e.RunID, p["total"]), styleInfo
	case TestStarted:
		return fmt.Sprintf("  • %v ...", p["test_id"]), styleInfo
	case TestLog:
		if !c.Verbose {
			return "", nil
		}
		return fmt.Sprintf("    %v", p["log"]), styleDim
	case TestCompleted:
		status := fmt.Sprint(p["status"])
		switch status {
		case "passed":
			return fmt.Sprintf("  ✔ %v passed", p["test_id"]), styleOK
		case "skipped":
			return fmt.Sprintf("  ↷ %v skipped", p["test_id"]), styleSkip
		default:
			return fmt.Sprintf("  ✘ %v %s", p["test_id"], status), styleFail
		}
	case RunProgress:
		return fmt.Sprintf("  %v%%", p["progress"]), styleDim
	case RunCompleted:
		if fmt.Sprint(p["result"]) == "success" {
			return fmt.Sprintf("■ run %s completed: success", e.RunID), styleOK
		}
		return fmt.Sprintf("■ run %s completed: %v", e.RunID, p["result"]), styleFail
	case RunError:
		return fmt.Sprintf("■ run %s error: %v", e.RunID, p["error"]), styleFail
	default:
		return fmt.Sprintf("%s %s", e.Name, e.RunID), styleDim
	}
}
