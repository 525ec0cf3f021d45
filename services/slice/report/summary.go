// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorTeal    = lipgloss.Color("#2CD7C7")
	colorDeep    = lipgloss.Color("#16858E")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

// summaryStyles holds the styles of one RenderSummary call.
type summaryStyles struct {
	title lipgloss.Style
	label lipgloss.Style
	good  lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	muted lipgloss.Style
	box   lipgloss.Style
}

func newSummaryStyles(color bool) summaryStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return summaryStyles{
			title: plain.Bold(true), label: plain, good: plain, warn: plain, bad: plain, muted: plain,
			box: plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}
	return summaryStyles{
		title: lipgloss.NewStyle().Bold(true).Foreground(colorTeal),
		label: lipgloss.NewStyle().Bold(true),
		good:  lipgloss.NewStyle().Foreground(colorTeal),
		warn:  lipgloss.NewStyle().Foreground(colorWarning),
		bad:   lipgloss.NewStyle().Foreground(colorError),
		muted: lipgloss.NewStyle().Foreground(colorMuted),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDeep).
			Padding(0, 1),
	}
}

// RenderSummary writes a boxed terminal summary of r.
//
// Description:
//
//	Shows file totals, the success rate (coloured by threshold when color
//	is true), the top aliases and the number of unresolved specifiers.
//	Pass color=false when w is not a terminal.
func RenderSummary(w io.Writer, r *Report, color bool) error {
	s := newSummaryStyles(color)
	a := r.AliasStatistics

	rate := s.good
	switch {
	case a.SuccessRate < 90:
		rate = s.bad
	case a.SuccessRate < 99:
		rate = s.warn
	}

	var lines []string
	lines = append(lines, s.title.Render("depslice "+r.Summary.RunID))
	lines = append(lines, fmt.Sprintf("%s %d", s.label.Render("Files:"), r.Summary.TotalFiles))
	lines = append(lines, fmt.Sprintf("%s %d (%d external)",
		s.label.Render("Resolutions:"), a.TotalResolutions, a.ExternalResolutions))
	lines = append(lines, fmt.Sprintf("%s %s",
		s.label.Render("Success rate:"), rate.Render(fmt.Sprintf("%.1f%%", a.SuccessRate))))

	if ranked := AliasRanking(a.AliasUsage); len(ranked) > 0 {
		top := make([]string, 0, 3)
		for i, c := range ranked {
			if i == 3 {
				break
			}
			top = append(top, fmt.Sprintf("%s=%d", c.Name, c.Count))
		}
		lines = append(lines, fmt.Sprintf("%s %s", s.label.Render("Top aliases:"), strings.Join(top, " ")))
	}
	if a.FailedResolutions > 0 {
		lines = append(lines, s.bad.Render(fmt.Sprintf("%d unresolved specifiers", a.FailedResolutions)))
	}
	if n := a.ReadFailures + a.ParseFailures; n > 0 {
		lines = append(lines, s.warn.Render(fmt.Sprintf("%d files could not be read or parsed", n)))
	}
	lines = append(lines, s.muted.Render(fmt.Sprintf("took %s", r.Summary.Duration)))

	_, err := fmt.Fprintln(w, s.box.Render(strings.Join(lines, "\n")))
	return err
}
