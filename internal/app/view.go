package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jwulff/voicetext/internal/config"
	"github.com/jwulff/voicetext/internal/level"
	"github.com/jwulff/voicetext/internal/session"
	"github.com/jwulff/voicetext/internal/stats"
	"github.com/jwulff/voicetext/internal/timer"
	"github.com/jwulff/voicetext/internal/ui"
)

const (
	spectrumCols = 24
	meterLen     = 8
)

var spectrumRunes = []rune("▁▂▃▄▅▆▇█")

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, m.theme.Divider.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderTranscript(m.width-2, m.transcriptVisibleLines()))
	sections = append(sections, m.theme.Divider.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderStats())
	sections = append(sections, m.renderStatusLine())
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) transcriptVisibleLines() int {
	if m.height == 0 {
		return 20
	}
	// header, status bar, two dividers, stats, status line, footer
	reserved := 7
	return max(3, m.height-reserved)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("VOICETEXT")
	lang := m.theme.Dim.Render(" — " + config.LanguageName(m.session.Language))
	eng := m.theme.Dim.Render(" [" + m.engineName() + "]")

	var flags []string
	if m.session.Normalize {
		flags = append(flags, "punct")
	}
	if m.prefs.NoiseReduction {
		flags = append(flags, "nr")
	}
	if m.prefs.AutoSave {
		flags = append(flags, "autosave")
	}
	var extra string
	if len(flags) > 0 {
		extra = m.theme.Dim.Render(" " + strings.Join(flags, " "))
	}
	return title + lang + eng + extra
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.session.State {
	case session.Listening:
		dot = m.theme.ToneRecording.Render("● REC")
	case session.Paused:
		dot = m.theme.TonePaused.Render("❚❚ PAUSED")
	case session.Stopped:
		dot = m.theme.ToneIdle.Render("■ STOPPED")
	case session.Error:
		dot = m.theme.ToneError.Render("✕ ERROR")
	default:
		dot = m.theme.ToneIdle.Render("○ IDLE")
	}

	elapsed := timer.Format(m.session.Timer.Elapsed(m.now))
	bar := dot + "  " + m.theme.Value.Render(elapsed)

	if m.caps.Levels && m.session.State == session.Listening {
		bar += "  " + renderSpectrum(m.theme, m.levels, spectrumCols)
		bar += "  " + renderLevelMeter(m.theme, "MIC", level.Level(m.levels))
	}
	return bar
}

// renderSpectrum draws cols bars, each the mean of a run of frequency bins.
func renderSpectrum(theme ui.Theme, bins []uint8, cols int) string {
	if len(bins) == 0 {
		return theme.LevelOff.Render(strings.Repeat(string(spectrumRunes[0]), cols))
	}
	per := max(1, len(bins)/cols)
	var b strings.Builder
	for c := range cols {
		lo := c * per
		if lo >= len(bins) {
			b.WriteRune(spectrumRunes[0])
			continue
		}
		hi := min(lo+per, len(bins))
		var sum int
		for _, v := range bins[lo:hi] {
			sum += int(v)
		}
		avg := float64(sum) / float64(hi-lo)
		idx := int(math.Round(avg / 255 * float64(len(spectrumRunes)-1)))
		b.WriteRune(spectrumRunes[idx])
	}
	return theme.LevelLow.Render(b.String())
}

func renderLevelMeter(theme ui.Theme, label string, lvl float64) string {
	filled := min(int(lvl*meterLen), meterLen)

	var bar string
	for i := range meterLen {
		if i < filled {
			pct := float64(i) / meterLen
			if pct > 0.6 {
				bar += theme.LevelHigh.Render("█")
			} else {
				bar += theme.LevelLow.Render("█")
			}
		} else {
			bar += theme.LevelOff.Render("░")
		}
	}
	return theme.Label.Render(label) + " " + bar
}

// renderTranscript shows the tail of the transcript: finalized text, then the
// interim guess in its own style, then a cursor when the buffer is editable.
func (m Model) renderTranscript(width, height int) string {
	var lines []string

	final, interim := m.session.Final, m.session.Interim
	switch {
	case final == "" && interim == "":
		lines = append(lines, "")
		if m.session.StartDisabled {
			lines = append(lines, m.theme.Dim.Render("  No recognition engine available. Type to edit, or configure engine.driver."))
		} else {
			lines = append(lines, m.theme.Dim.Render("  Press ctrl+s to start dictating, or type to edit."))
		}
	default:
		for _, l := range wrapText(final, width) {
			lines = append(lines, m.theme.Final.Render(l))
		}
		if interim != "" {
			for _, l := range wrapText(interim, width) {
				lines = append(lines, m.theme.Interim.Render(l))
			}
		}
	}

	if m.session.State != session.Listening && (final != "" || interim != "") {
		cursor := m.theme.Cursor.Render("▌")
		if len(lines) > 0 && lipgloss.Width(lines[len(lines)-1]) < width {
			lines[len(lines)-1] += cursor
		} else {
			lines = append(lines, cursor)
		}
	}

	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStats() string {
	st := m.session.Stats
	parts := []string{
		m.theme.Label.Render("Words ") + m.theme.Value.Render(humanize.Comma(int64(st.Words))),
		m.theme.Label.Render("Chars ") + m.theme.Value.Render(humanize.Comma(int64(st.Chars))),
	}

	conf := m.theme.Dim.Render("--")
	if avg, ok := st.Average(); ok {
		pct := fmt.Sprintf("%d%%", int(math.Round(avg*100)))
		switch stats.BandFor(avg) {
		case stats.BandGood:
			conf = m.theme.BandGood.Render(pct)
		case stats.BandFair:
			conf = m.theme.BandFair.Render(pct)
		default:
			conf = m.theme.BandPoor.Render(pct)
		}
	}
	parts = append(parts, m.theme.Label.Render("Confidence ")+conf)

	wpm := m.session.WPM
	if m.session.State == session.Listening || m.session.State == session.Paused {
		wpm = stats.WPM(st.Words, m.session.Timer.Elapsed(m.now))
	}
	parts = append(parts, m.theme.Label.Render("WPM ")+m.theme.Value.Render(fmt.Sprint(wpm)))
	parts = append(parts, m.theme.Label.Render("Saved ")+m.theme.Value.Render(formatSaved(stats.TimeSaved(st.Words).Minutes())))

	return strings.Join(parts, m.theme.Divider.Render(" · "))
}

func formatSaved(minutes float64) string {
	if minutes < 1 {
		return "<1 min"
	}
	return fmt.Sprintf("%d min", int(minutes))
}

func (m Model) renderStatusLine() string {
	text, tone := m.session.Status, m.session.Tone
	if m.notice != "" {
		text, tone = m.notice, m.noticeTone
	}
	return m.toneStyle(tone).Render(truncateToWidth(text, m.width))
}

func (m Model) toneStyle(t session.Tone) lipgloss.Style {
	switch t {
	case session.ToneRecording:
		return m.theme.ToneRecording
	case session.TonePaused:
		return m.theme.TonePaused
	case session.ToneError:
		return m.theme.ToneError
	case session.ToneInfo:
		return m.theme.ToneInfo
	case session.ToneSuccess:
		return m.theme.ToneSuccess
	default:
		return m.theme.ToneIdle
	}
}

func (m Model) footerKey(key, desc string, enabled bool) string {
	if !enabled {
		return m.theme.Disabled.Render(key + " " + desc)
	}
	return m.theme.FooterKey.Render(key) + m.theme.FootDesc.Render(" "+desc)
}

func (m Model) renderFooter() string {
	c := m.session.Controls()
	listening := m.session.State == session.Listening

	var parts []string
	if c.Stop {
		parts = append(parts, m.footerKey("^S", "Stop", true))
	} else {
		parts = append(parts, m.footerKey("^S", "Start", c.Start))
	}
	if c.Resume {
		parts = append(parts, m.footerKey("^P", "Resume", true))
	} else {
		parts = append(parts, m.footerKey("^P", "Pause", c.Pause))
	}
	parts = append(parts,
		m.footerKey("^X", "Clear", true),
		m.footerKey("^F", "Tidy", true),
		m.footerKey("^Y", "Copy", m.caps.Clipboard),
		m.footerKey("^W", "Save", true),
		m.footerKey("^L", "Lang", true),
		m.footerKey("^N", "Punct", true),
		m.footerKey("^R", "Noise", m.caps.Levels),
		m.footerKey("^A", "AutoSave", m.caps.Settings),
		m.footerKey("^D", "Theme", true),
		m.footerKey("Esc", "Quit", true),
	)
	if listening {
		parts = append(parts, m.theme.Dim.Render("(editing locked)"))
	}
	return strings.Join(parts, "  ")
}

// Helpers

func truncateToWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

// wrapText wraps each line of text to width, keeping empty lines so that
// dictated paragraph breaks stay visible.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case current == "":
				current = word
			case lipgloss.Width(current)+1+lipgloss.Width(word) <= width:
				current += " " + word
			default:
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
