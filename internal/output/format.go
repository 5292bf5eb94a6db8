// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"gtasks/internal/service"
)

const (
	// ListSeparator is the separator line for view sections.
	ListSeparator = "------------"
)

// FormatTask formats one task line.
// Format: "{N:>4}  {TITLE}" plus "  (due YYYY-MM-DD)" when the task has a due date.
func FormatTask(w io.Writer, num int, task service.Task) {
	title := normalizeTitle(task.Title)
	if due, ok := task.DueTime(); ok {
		fmt.Fprintf(w, "%4d  %s  (due %s)\n", num, title, due.Format(service.DateLayout))
		return
	}
	fmt.Fprintf(w, "%4d  %s\n", num, title)
}

// FormatViewHeader formats a view section header with its task count.
func FormatViewHeader(w io.Writer, title string, count int) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (%d)\n", normalizeListTitle(title), count)
	fmt.Fprintln(w, ListSeparator)
}

// FormatView formats a header followed by numbered task lines.
func FormatView(w io.Writer, title string, tasks []service.Task) {
	FormatViewHeader(w, title, len(tasks))
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
}

// FormatListName formats a list name for the lists command.
func FormatListName(w io.Writer, list service.TaskList, tracked bool) {
	title := normalizeListTitle(list.Title)
	if list.IsDefault {
		title += " [default]"
	}
	if tracked {
		title += " [tracked]"
	}
	fmt.Fprintln(w, title)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// normalizeListTitle normalizes a list title for display.
// Empty or whitespace-only titles become "(untitled)".
func normalizeListTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
