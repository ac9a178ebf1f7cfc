package testrunner

import (
	"fmt"
	"strings"
	"time"
)

// logBook accumulates the chronological log of one test and forwards each
// line to an optional observer.
type logBook struct {
	lines   []string
	now     func() time.Time
	observe func(string)
}

func (l *logBook) stamp(format string, args ...any) {
	l.raw(fmt.Sprintf("[%s] %s", l.now().Format("15:04:05"), fmt.Sprintf(format, args...)))
}

func (l *logBook) raw(line string) {
	l.lines = append(l.lines, line)
	if l.observe != nil {
		l.observe(line)
	}
}

func (l *logBook) String() string {
	return strings.Join(l.lines, "\n")
}
