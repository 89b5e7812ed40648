package printers

import (
	"fmt"
	"io"

	"flashread/internal/logging"
)

// ItemPrinter is the base of the flash-read printers: a writer, an
// optional logger that mirrors each line, and a mute switch.
type ItemPrinter struct {
	writer io.Writer
	log    logging.Logger
	muted  bool
}

// NewItemPrinter constructs an ItemPrinter using the given io.Writer.
func NewItemPrinter(writer io.Writer) *ItemPrinter {
	return &ItemPrinter{
		writer: writer,
	}
}

// SetMessageLogger sets the optional logger that also receives each line.
func (p *ItemPrinter) SetMessageLogger(logger logging.Logger) {
	p.log = logger
}

// ItemPrintLine writes msg to the writer and, when set, to the logger.
func (p *ItemPrinter) ItemPrintLine(msg string) {
	if p.muted {
		return
	}
	if p.writer != nil {
		fmt.Fprint(p.writer, msg)
	}
	if p.log != nil {
		p.log.Info(msg)
	}
}

// SetMute sets the printer to mute (avoids output).
func (p *ItemPrinter) SetMute(mute bool) { p.muted = mute }

// IsMuted returns true if the printer is muted.
func (p *ItemPrinter) IsMuted() bool { return p.muted }
