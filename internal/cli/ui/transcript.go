package ui

import (
	"fmt"

	"github.com/aki/mcprelay/internal/transcript"
)

// FormatEntry renders a transcript entry for the terminal.
func FormatEntry(e transcript.Entry) string {
	style, ok := directionStyles[string(e.Dir)]
	if !ok {
		style = DimStyle
	}
	return fmt.Sprintf("%s %s %s",
		DimStyle.Render(e.Time.Local().Format("15:04:05.000")),
		style.Render(fmt.Sprintf("%-3s", e.Dir)),
		e.Line,
	)
}
