package printers

import (
	"fmt"
	"io"
	"strings"
)

const bytesPerLine = 16

// HexDumpPrinter prints memory as lines of 16 bytes: the address of the
// first byte, the bytes in hex and an ASCII gutter.
//
//	0x00000100: 01 08 0f 16 1d 24 2b 32 39 40 47 4e 55 5c 63 6a  |.....$+29@GNU\cj|
type HexDumpPrinter struct {
	ItemPrinter
	width int
}

// NewHexDumpPrinter creates a hexdump printer. Addresses are printed
// with 8 hex digits, or 16 once they no longer fit.
func NewHexDumpPrinter(writer io.Writer) *HexDumpPrinter {
	return &HexDumpPrinter{ItemPrinter: *NewItemPrinter(writer), width: 8}
}

// PrintMemory dumps data as read from address.
func (p *HexDumpPrinter) PrintMemory(address uint64, data []byte) {
	if p.IsMuted() {
		return
	}
	width := p.width
	if last := address + uint64(len(data)); last > 0xffffffff {
		width = 16
	}

	var sb strings.Builder
	for off := 0; off < len(data); off += bytesPerLine {
		line := data[off:min(off+bytesPerLine, len(data))]
		fmt.Fprintf(&sb, "0x%0*x: ", width, address+uint64(off))
		for i := 0; i < bytesPerLine; i++ {
			if i < len(line) {
				fmt.Fprintf(&sb, "%02x ", line[i])
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString(" |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}
	p.ItemPrintLine(sb.String())
}

// WriteBinary writes data unchanged.
func WriteBinary(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}
