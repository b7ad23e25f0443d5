package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/sections"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	plainBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	chatBoxStyle = plainBoxStyle.
			BorderForeground(lipgloss.Color("42"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Underline(true)
)

// renderSection draws one parsed section. Plain text goes in a box so it
// can be copied as is; narrative text gets bullet rows.
func renderSection(sec sections.Section) string {
	var b strings.Builder
	if title := sec.DisplayTitle(); title != "" {
		b.WriteString(sectionTitleStyle.Render(title))
		b.WriteString("\n")
	}

	switch sec.Kind {
	case sections.ChatReply:
		b.WriteString(chatBoxStyle.Render(sec.Content))
	case sections.PlainText:
		b.WriteString(plainBoxStyle.Render(sec.Content))
	default:
		b.WriteString(strings.Join(sections.RenderFormattedContent(sec.Content), "\n"))
	}
	return b.String()
}

func renderSections(secs []sections.Section) string {
	rendered := make([]string, 0, len(secs))
	for _, sec := range secs {
		rendered = append(rendered, renderSection(sec))
	}
	return strings.Join(rendered, "\n\n")
}

func renderSources(urls []listing.MarketURL) string {
	if len(urls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render(MsgSourcesTitle))
	for _, u := range urls {
		title := u.Title
		if title == "" {
			title = u.URI
		}
		fmt.Fprintf(&b, "\n• %s %s", title, linkStyle.Render(u.URI))
	}
	return b.String()
}

// copyLabel names a section in the copy action list.
func copyLabel(sec sections.Section) string {
	title := sec.DisplayTitle()
	if title == "" {
		title = "texto"
	}
	return fmt.Sprintf(ActionCopy, title)
}

// historyLine is the one-line summary of a saved listing.
func historyLine(item listing.HistoryItem, now time.Time) string {
	when := humanize.RelTime(time.UnixMilli(item.Timestamp), now, "ago", "from now")
	line := fmt.Sprintf("%s · %s · %s", item.Title(), item.Details.Platform, when)
	if len(item.EnhancedImage) > 0 {
		line += " ✨"
	}
	return line
}

func printHistory(w io.Writer, items []listing.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, MsgHistoryEmpty)
		return
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf(MsgHistoryHeading, len(items))))
	now := time.Now()
	for i, item := range items {
		fmt.Fprintf(w, "%2d. %s\n", i+1, historyLine(item, now))
		fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("    %s · foto %s", item.ID, humanize.Bytes(uint64(len(item.DisplayImage()))))))
	}
}
