package ui

import (
	"fmt"
	"strings"

	"SharedBoard/internal/board"
	"SharedBoard/internal/state"
)

// statusText renders the status bar line.
func statusText(st board.Status, link string) string {
	parts := []string{st.Tool.String()}
	if st.Tool == state.ToolPen {
		parts = append(parts, st.Color)
	}
	if !st.Smoothing {
		parts = append(parts, "raw")
	}
	parts = append(parts, fmt.Sprintf("%d strokes", st.Painted))
	if st.Offset.X != 0 || st.Offset.Y != 0 {
		parts = append(parts, fmt.Sprintf("offset %.0f,%.0f", st.Offset.X, st.Offset.Y))
	}
	if st.Simulating {
		parts = append(parts, "simulating")
	}
	if link != "" {
		parts = append(parts, link)
	}
	return strings.Join(parts, " | ")
}
