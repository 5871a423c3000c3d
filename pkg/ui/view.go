package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/atlasview/pkg/scene"
)

const (
	clusterGlyph   = "◉"
	itemGlyph      = "▪"
	lowItemGlyph   = "·"
	selectedGlyph  = "▣"
	helpLine       = "drag/hjkl pan · wheel/+- zoom · r recenter · n/p select · f focus · e explode · x/c expand · / filter · L lock · y yank · q quit"
	noDataFallback = "no snapshot loaded"
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	canvas := m.renderCanvas()
	status := m.renderStatusBar()

	var bottom string
	if m.filtering {
		bottom = "/" + m.filterInput.View()
	} else {
		bottom = helpStyle.Render(runewidth.Truncate(helpLine, m.width, "…"))
	}

	return canvas + "\n" + status + "\n" + bottom
}

// renderCanvas projects the draw list into the terminal cell grid.
func (m *Model) renderCanvas() string {
	type cell struct {
		glyph string
		style lipgloss.Style
	}
	grid := make([]map[int]cell, m.canvasH)

	put := func(row, col int, glyph string, style lipgloss.Style) {
		if row < 0 || row >= m.canvasH || col < 0 || col >= m.width {
			return
		}
		if grid[row] == nil {
			grid[row] = make(map[int]cell)
		}
		grid[row][col] = cell{glyph: glyph, style: style}
	}

	pose := m.cam.Pose()
	for _, cmd := range m.asm.Build(m.cam) {
		screen := pose.WorldToScreen(cmd.Pos)
		col := int(screen.X / cellPxW)
		row := int(screen.Y / cellPxH)

		switch cmd.Kind {
		case scene.KindCluster:
			style := clusterStyle
			if cmd.Dimmed {
				style = dimStyle
			}
			put(row, col, clusterGlyph, style)
			if !cmd.LowDetail {
				label := fmt.Sprintf("%d", cmd.MemberCount)
				for i, r := range label {
					put(row, col+2+i, string(r), style)
				}
			}
		case scene.KindItem:
			glyph := itemGlyph
			style := itemStyle
			if cmd.LowDetail {
				glyph = lowItemGlyph
				style = lowStyle
			}
			if cmd.Dimmed {
				style = dimStyle
			}
			if cmd.ID == m.selectedID {
				glyph = selectedGlyph
				style = clusterStyle
			}
			put(row, col, glyph, style)
		}
	}

	var b strings.Builder
	for row := 0; row < m.canvasH; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		cells := grid[row]
		col := 0
		for col < m.width {
			c, ok := cells[col]
			if !ok {
				b.WriteByte(' ')
				col++
				continue
			}
			b.WriteString(c.style.Render(c.glyph))
			col += runewidth.StringWidth(c.glyph)
		}
	}
	return b.String()
}

func (m *Model) renderStatusBar() string {
	var left string
	switch {
	case m.lastErr != nil:
		left = errorStyle.Render(runewidth.Truncate(m.lastErr.Error(), m.width/2, "…"))
	case m.loading:
		left = m.spin.View() + " loading"
	case m.statusMsg != "":
		left = statusStyle.Render(m.statusMsg)
	default:
		snap := m.asm.Snapshot()
		if len(snap.Items) == 0 {
			left = statusStyle.Render(noDataFallback)
		} else {
			left = statusStyle.Render(fmt.Sprintf("%d clusters · %d items",
				len(snap.Clusters), len(snap.Items)))
		}
	}

	var badges []string
	if m.cam.Locked() {
		badges = append(badges, badgeStyle.Render("[LOCK]"))
	}
	if m.asm.Explosion() {
		badges = append(badges, badgeStyle.Render("[EXPLODE]"))
	}
	if m.watch != nil && m.watch.IsPolling() {
		badges = append(badges, helpStyle.Render("[POLL]"))
	}
	badges = append(badges, statusStyle.Render(fmt.Sprintf("%3.0f%%", m.cam.Pose().Scale*100)))
	right := strings.Join(badges, " ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
