package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	topicStyle   = lipgloss.NewStyle().Bold(true)
	feedbackBox  = lipgloss.NewStyle().PaddingLeft(2)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

func badge(covered bool) string {
	if covered {
		return passStyle.Render("COVERED")
	}
	return failStyle.Render("NOT COVERED")
}

// renderReport writes a human-readable adherence report.
func renderReport(w io.Writer, report *models.AdherenceReport, showTranscript bool) {
	fmt.Fprintln(w, titleStyle.Render("Script adherence report"))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("interaction %s  report %s", report.InteractionID, report.ReportID)))

	if showTranscript {
		fmt.Fprintln(w, sectionStyle.Render(topicStyle.Render("Cleaned transcript")))
		fmt.Fprintln(w, feedbackBox.Render(report.CleanedTranscript))
	}

	for _, r := range report.Results {
		renderTopic(w, r)
	}

	covered := 0
	for _, r := range report.Results {
		if r.FullyCovered {
			covered++
		}
	}
	summary := fmt.Sprintf("%d/%d checklists fully covered", covered, len(report.Results))
	if report.FullyCompliant {
		summary = passStyle.Render(summary)
	} else {
		summary = failStyle.Render(summary)
	}
	fmt.Fprintln(w, sectionStyle.Render(summary))
}

func renderTopic(w io.Writer, r models.TopicResult) {
	title := r.Title
	if title == "" {
		title = r.Topic
	}
	fmt.Fprintln(w, sectionStyle.Render(topicStyle.Render(title)+"  "+badge(r.FullyCovered)))
	fmt.Fprintln(w, feedbackBox.Render(strings.TrimSpace(r.Feedback)))
}

// renderChecklists writes one block per configured checklist.
func renderChecklists(w io.Writer, set *checklist.Set, verbose bool) {
	for _, c := range set.All() {
		header := fmt.Sprintf("%s  %s", topicStyle.Render(c.ID), c.Title)
		fmt.Fprintln(w, header+mutedStyle.Render(fmt.Sprintf("  (%d points)", len(c.Points))))
		if !verbose {
			continue
		}
		if c.Preamble != "" {
			fmt.Fprintln(w, feedbackBox.Render(mutedStyle.Render(c.Preamble)))
		}
		for _, p := range c.Points {
			fmt.Fprintln(w, feedbackBox.Render(fmt.Sprintf("%s. %s", p.ID, p.Text)))
		}
	}
}
