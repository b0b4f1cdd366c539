// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"taskman/internal/service"
	"taskman/internal/tasks"
)

const (
	// Separator is the rule printed around section headers.
	Separator = "------------"

	// Ellipsis marks skipped page numbers in the pagination bar.
	Ellipsis = "..."

	// maxVisiblePages is the number of page slots shown before collapsing.
	maxVisiblePages = 5
)

// FormatHeader prints the application header and the task section title.
// An empty name renders as "User".
func FormatHeader(w io.Writer, name string, total int) {
	if strings.TrimSpace(name) == "" {
		name = "User"
	}
	fmt.Fprintln(w, "Task Manager")
	fmt.Fprintf(w, "Welcome, %s\n", name)
	fmt.Fprintln(w, Separator)
	fmt.Fprintf(w, "Your Tasks (%d total)\n", total)
	fmt.Fprintln(w, Separator)
}

// FormatTask formats a task card.
// Format: "{N:>4}  {[STATUS]:<13}  {TITLE}\n" followed by an indented
// description line when present. Busy tasks carry a "(saving)" suffix.
func FormatTask(w io.Writer, num int, task service.Task, busy bool) {
	title := normalizeTitle(task.Title)
	if busy {
		title += " (saving)"
	}
	fmt.Fprintf(w, "%4d  %-13s  %s\n", num, "["+task.Status.Label()+"]", title)
	if desc := normalizeDescription(task.Description); desc != "" {
		fmt.Fprintf(w, "%21s%s\n", "", desc)
	}
}

// FormatEmpty prints the empty-collection message.
func FormatEmpty(w io.Writer) {
	fmt.Fprintln(w, "No tasks yet")
	fmt.Fprintln(w, "Create your first task with: taskman add <title>")
}

// FormatBanner prints a dismissible error banner. Empty messages print nothing.
func FormatBanner(w io.Writer, msg string) {
	if msg == "" {
		return
	}
	fmt.Fprintf(w, "! %s\n", msg)
}

// PageNumbers returns the page slots for the pagination bar. Zero marks an
// ellipsis. Nil is returned when there is nothing to paginate.
func PageNumbers(current, total int) []int {
	if total <= 1 {
		return nil
	}
	if total <= maxVisiblePages {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}
	switch {
	case current <= 3:
		return []int{1, 2, 3, 4, 0, total}
	case current >= total-2:
		return []int{1, 0, total - 3, total - 2, total - 1, total}
	default:
		return []int{1, 0, current - 1, current, current + 1, 0, total}
	}
}

// FormatPagination prints the pagination bar, e.g. "< 1 [2] 3 4 ... 8 >".
// The arrows are omitted on the first and last page. Nothing is printed
// when totalPages <= 1.
func FormatPagination(w io.Writer, current, totalPages int) {
	pages := PageNumbers(current, totalPages)
	if pages == nil {
		return
	}

	parts := make([]string, 0, len(pages)+2)
	if current > 1 {
		parts = append(parts, "<")
	}
	for _, p := range pages {
		switch {
		case p == 0:
			parts = append(parts, Ellipsis)
		case p == current:
			parts = append(parts, "["+strconv.Itoa(p)+"]")
		default:
			parts = append(parts, strconv.Itoa(p))
		}
	}
	if current < totalPages {
		parts = append(parts, ">")
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

// RenderTasks prints the full task view: banner, header, cards (numbered
// across pages) or the empty state, and the pagination bar. busy may be nil.
func RenderTasks(w io.Writer, name string, v tasks.View, pageSize int, busy func(id string) bool) {
	FormatBanner(w, v.Banner)
	FormatHeader(w, name, v.TotalItems)

	if len(v.Items) == 0 {
		FormatEmpty(w)
	} else {
		offset := (max(v.CurrentPage, 1) - 1) * pageSize
		for i, task := range v.Items {
			FormatTask(w, offset+i+1, task, busy != nil && busy(task.ID))
		}
	}

	if v.TotalPages > 1 {
		fmt.Fprintln(w)
		FormatPagination(w, v.CurrentPage, v.TotalPages)
	}
}

// FormatUser formats the session user for whoami.
func FormatUser(w io.Writer, u service.User) {
	name := u.Name
	if strings.TrimSpace(name) == "" {
		name = "User"
	}
	if u.Email != "" {
		fmt.Fprintf(w, "%s <%s>\n", name, u.Email)
		return
	}
	fmt.Fprintln(w, name)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = flatten(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func normalizeDescription(desc string) string {
	return strings.TrimSpace(flatten(desc))
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
