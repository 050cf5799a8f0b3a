package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bft-labs/shmslot/internal/domain"
)

// maxRows caps the detection table.
const maxRows = 8

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorOK      = lipgloss.Color("#10B981")
	colorWarn    = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(10)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

// Render formats a sample as a bordered panel.
func Render(s Sample) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("shmslot " + s.Key))
	b.WriteString("\n\n")
	row(&b, "backend", fmt.Sprintf("%s  %s", s.Backend, mutedStyle.Render(s.Name)))
	row(&b, "size", fmt.Sprintf("%d bytes, %d detections", s.Size, s.Capacity))
	row(&b, "attached", attachedText(s.Attached))
	row(&b, "sequence", fmt.Sprintf("%d", s.Sequence))
	row(&b, "status", statusText(s))

	if s.Err != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(colorError).Render(s.Err))
	}
	if s.Frame != nil {
		b.WriteString("\n")
		b.WriteString(renderFrame(*s.Frame))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func attachedText(n int) string {
	if n < 0 {
		return mutedStyle.Render("unknown")
	}
	return fmt.Sprintf("%d", n)
}

func statusText(s Sample) string {
	switch {
	case s.WriterActive:
		return lipgloss.NewStyle().Foreground(colorWarn).Render("writing")
	case s.Done:
		return lipgloss.NewStyle().Foreground(colorMuted).Render("finished")
	case s.Sequence == 0:
		return mutedStyle.Render("empty")
	default:
		return lipgloss.NewStyle().Foreground(colorOK).Render("live")
	}
}

func renderFrame(doc domain.FrameDoc) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d  %d detections\n", labelStyle.Render("frame"), *doc.Frame, len(doc.Detections))
	if len(doc.Detections) == 0 {
		return b.String()
	}

	dets := append([]domain.Detection(nil), doc.Detections...)
	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Confidence > dets[j].Confidence })

	b.WriteString(mutedStyle.Render(fmt.Sprintf("%8s %8s %8s %8s %6s", "x", "y", "w", "h", "conf")))
	b.WriteString("\n")
	for i, d := range dets {
		if i == maxRows {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("... %d more", len(dets)-maxRows)))
			b.WriteString("\n")
			break
		}
		fmt.Fprintf(&b, "%8.1f %8.1f %8.1f %8.1f %6.2f\n", d.X, d.Y, d.Width, d.Height, d.Confidence)
	}
	return b.String()
}
