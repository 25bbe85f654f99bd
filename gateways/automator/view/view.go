// Package view turns run outcomes into what the user sees: a display model shared
// by the web pages, the CLI and the drop-folder reports.
package view

import (
	"fmt"
	"strings"

	"github.com/xilidan/automator/services/automator/entity"
)

type Item struct {
	Number int    `json:"number" yaml:"number"`
	Task   string `json:"task" yaml:"task"`
	Owner  string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Due    string `json:"due,omitempty" yaml:"due,omitempty"`
}

// Lines returns the optional detail lines of the item. Absent fields produce no line.
func (i Item) Lines() []string {
	var lines []string
	if i.Owner != "" {
		lines = append(lines, "Owner: "+i.Owner)
	}
	if i.Due != "" {
		lines = append(lines, "Due: "+i.Due)
	}
	return lines
}

type Display struct {
	Kind  entity.OutcomeKind `json:"kind" yaml:"kind"`
	Error string             `json:"error,omitempty" yaml:"error,omitempty"`

	Transcript string `json:"transcript,omitempty" yaml:"transcript,omitempty"`

	Summary      string `json:"summary,omitempty" yaml:"summary,omitempty"`
	HasSummary   bool   `json:"has_summary" yaml:"has_summary"`
	SummaryError string `json:"summary_error,omitempty" yaml:"summary_error,omitempty"`

	ActionItems      []Item `json:"action_items" yaml:"action_items"`
	ActionItemsError string `json:"action_items_error,omitempty" yaml:"action_items_error,omitempty"`
}

func FromOutcome(o entity.RunOutcome) Display {
	d := Display{
		Kind:        o.Kind,
		Transcript:  o.Transcript,
		ActionItems: make([]Item, 0, len(o.ActionItems)),
	}

	if o.Kind == entity.OutcomeTotalFailure {
		d.Error = o.Reason
		return d
	}

	if o.Summary != nil {
		d.Summary = *o.Summary
		d.HasSummary = true
	}
	if f, ok := o.Failure(entity.StageSummarize); ok {
		d.SummaryError = f.Message
	}
	if f, ok := o.Failure(entity.StageActionItems); ok {
		d.ActionItemsError = f.Message
	}

	for i, item := range o.ActionItems {
		d.ActionItems = append(d.ActionItems, Item{
			Number: i + 1,
			Task:   item.Task,
			Owner:  item.Owner,
			Due:    item.DueDate,
		})
	}
	return d
}

// Markdown renders the display as a markdown document. Backend text is written
// verbatim.
func Markdown(d Display) string {
	var b strings.Builder

	if d.Kind == entity.OutcomeTotalFailure {
		fmt.Fprintf(&b, "**Error:** %s\n", d.Error)
		return b.String()
	}

	b.WriteString("## Transcript\n\n")
	b.WriteString(d.Transcript)
	b.WriteString("\n\n## Summary\n\n")
	switch {
	case d.SummaryError != "":
		fmt.Fprintf(&b, "**Error:** %s\n", d.SummaryError)
	default:
		b.WriteString(d.Summary)
		b.WriteString("\n")
	}

	b.WriteString("\n## Action items\n\n")
	switch {
	case d.ActionItemsError != "":
		fmt.Fprintf(&b, "**Error:** %s\n", d.ActionItemsError)
	case len(d.ActionItems) == 0:
		b.WriteString("No action items.\n")
	default:
		b.WriteString(itemList(d.ActionItems, "   "))
	}
	return b.String()
}

// Text renders the display for a terminal.
func Text(d Display) string {
	var b strings.Builder

	if d.Kind == entity.OutcomeTotalFailure {
		fmt.Fprintf(&b, "Error: %s\n", d.Error)
		return b.String()
	}

	b.WriteString("Transcript:\n")
	b.WriteString(d.Transcript)
	b.WriteString("\n\nSummary:\n")
	if d.SummaryError != "" {
		fmt.Fprintf(&b, "Error: %s\n", d.SummaryError)
	} else {
		b.WriteString(d.Summary)
		b.WriteString("\n")
	}

	b.WriteString("\nAction items:\n")
	switch {
	case d.ActionItemsError != "":
		fmt.Fprintf(&b, "Error: %s\n", d.ActionItemsError)
	case len(d.ActionItems) == 0:
		b.WriteString("No action items.\n")
	default:
		b.WriteString(itemList(d.ActionItems, "   "))
	}
	return b.String()
}

func itemList(items []Item, indent string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", item.Number, item.Task)
		for _, line := range item.Lines() {
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
