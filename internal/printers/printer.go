package printers

import (
	"fmt"
	"io"
	"os"
	"sync"

	"flashread/internal/eventlog"
)

// ProgressPrinter prints one line per recorded event of a read. It is an
// eventlog.Logger so it can sit next to the file log of a recorder.
type ProgressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	index int
}

func NewProgressPrinter() *ProgressPrinter {
	return &ProgressPrinter{
		out: os.Stderr,
	}
}

// SetOutput allows redirecting the printer output
func (p *ProgressPrinter) SetOutput(w io.Writer) {
	if w != nil {
		p.out = w
	}
}

// Log prints ev as "Idx:<N>; <kind>; <algorithm>@<core>; ...".
func (p *ProgressPrinter) Log(ev eventlog.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "Idx:%d; %s; %s@%s", p.index, ev.Kind, ev.Algorithm, ev.Core)
	switch ev.Kind {
	case eventlog.KindReadStarted, eventlog.KindReadProgress, eventlog.KindReadFinished, eventlog.KindReadFailed:
		fmt.Fprintf(p.out, "; 0x%08x+0x%x", ev.Address, ev.Size)
	}
	if ev.Error != "" {
		fmt.Fprintf(p.out, "; error: %s", ev.Error)
	}
	fmt.Fprintln(p.out)
	p.index++
}

var _ eventlog.Logger = (*ProgressPrinter)(nil)
