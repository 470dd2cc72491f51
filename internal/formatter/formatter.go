// package formatter renders compare, sync and history results as text, Markdown, CSV, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported [Format], for flag help.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat accepts a format name or a common alias (txt, yml, md).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Extension is the file extension used for exports in this format.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

const timeLayout = "2006-01-02 15:04:05 MST"

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

func itemLabel(filename, id string) string {
	if filename == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", filename, id)
}

// CompareToText renders a comparison for the terminal.
func CompareToText(result *models.CompareResult) []byte {
	var buf bytes.Buffer

	buf.WriteString(headingStyle.Render(fmt.Sprintf("Compare %s → %s", result.SourceAccount, result.TargetAccount)))
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "Compared at: %s\n", stamp(result.ComparedAt))
	fmt.Fprintf(&buf, "Source items: %d  Target items: %d\n\n", result.TotalSource, result.TotalTarget)

	if result.InSync() {
		buf.WriteString(okStyle.Render("✓ Target is in sync with source"))
		buf.WriteString("\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Missing on target (%d)\n", len(result.MissingOnTarget))
	for _, item := range result.MissingOnTarget {
		fmt.Fprintf(&buf, "  + %s\n", itemLabel(item.Filename, item.ID))
	}

	groups := result.DiffsByItem()
	fmt.Fprintf(&buf, "Different metadata (%d items, %d fields)\n", len(groups), len(result.DifferentMetadata))
	for _, g := range groups {
		for _, d := range g.Diffs {
			fmt.Fprintf(&buf, "  ~ %s %s: %q → %q\n", g.ItemID, d.Field, d.SourceValue, d.TargetValue)
		}
	}

	fmt.Fprintf(&buf, "Extra on target (%d)\n", len(result.ExtraOnTarget))
	for _, item := range result.ExtraOnTarget {
		fmt.Fprintf(&buf, "  - %s\n", itemLabel(item.Filename, item.ID))
	}

	buf.WriteString("\n")
	buf.WriteString(mutedStyle.Render(fmt.Sprintf("%d planned actions", result.PlanSize())))
	buf.WriteString("\n")
	return buf.Bytes()
}

// CompareToMarkdown renders a comparison as a Markdown report.
func CompareToMarkdown(result *models.CompareResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Compare %s → %s\n\n", result.SourceAccount, result.TargetAccount)
	fmt.Fprintf(&buf, "**Compared at**: %s\n", stamp(result.ComparedAt))
	fmt.Fprintf(&buf, "**Source items**: %d\n", result.TotalSource)
	fmt.Fprintf(&buf, "**Target items**: %d\n\n", result.TotalTarget)

	fmt.Fprintf(&buf, "## Missing on target (%d)\n\n", len(result.MissingOnTarget))
	for i, item := range result.MissingOnTarget {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, itemLabel(item.Filename, item.ID))
	}

	fmt.Fprintf(&buf, "\n## Different metadata (%d)\n\n", len(result.DifferentMetadata))
	if len(result.DifferentMetadata) > 0 {
		buf.WriteString("| Item | Field | Source | Target |\n|---|---|---|---|\n")
		for _, d := range result.DifferentMetadata {
			fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n", d.ItemID, d.Field, d.SourceValue, d.TargetValue)
		}
	}

	fmt.Fprintf(&buf, "\n## Extra on target (%d)\n\n", len(result.ExtraOnTarget))
	for i, item := range result.ExtraOnTarget {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, itemLabel(item.Filename, item.ID))
	}

	return buf.Bytes()
}

// CompareToCSV writes one row per planned change with columns:
// change, item_id, filename, field, source_value, target_value.
func CompareToCSV(result *models.CompareResult) ([]byte, error) {
	rows := [][]string{{"change", "item_id", "filename", "field", "source_value", "target_value"}}
	for _, item := range result.MissingOnTarget {
		rows = append(rows, []string{"missing", item.ID, item.Filename, "", "", ""})
	}
	for _, d := range result.DifferentMetadata {
		rows = append(rows, []string{"different", d.ItemID, "", d.Field, d.SourceValue, d.TargetValue})
	}
	for _, item := range result.ExtraOnTarget {
		rows = append(rows, []string{"extra", item.ID, item.Filename, "", "", ""})
	}
	return writeCSV(rows)
}

func statusMark(s models.ActionStatus) string {
	switch s {
	case models.StatusCompleted:
		return okStyle.Render("✓")
	case models.StatusFailed:
		return errStyle.Render("✗")
	default:
		return mutedStyle.Render("•")
	}
}

// SyncToText renders a sync outcome for the terminal.
func SyncToText(result *models.SyncResult) []byte {
	var buf bytes.Buffer

	title := fmt.Sprintf("Sync %s → %s", result.SourceAccount, result.TargetAccount)
	if result.DryRun {
		title += " [dry run]"
	}
	buf.WriteString(headingStyle.Render(title))
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "Synced at: %s\n", stamp(result.SyncedAt))
	fmt.Fprintf(&buf, "Added: %d  Updated: %d  Deleted: %d  Failed: %d  Total: %d\n\n",
		result.Added, result.Updated, result.Deleted, result.Failed, result.Total)

	if len(result.Actions) == 0 {
		buf.WriteString(okStyle.Render("✓ Nothing to do"))
		buf.WriteString("\n")
		return buf.Bytes()
	}

	for _, a := range result.Actions {
		line := fmt.Sprintf("%s %-6s %s", statusMark(a.Status), a.Kind, itemLabel(a.ItemFilename, a.ItemID))
		if a.Status == models.StatusPending {
			line += mutedStyle.Render(" (pending)")
		}
		if a.Error != "" {
			line += ": " + errStyle.Render(a.Error)
		}
		buf.WriteString(line + "\n")
	}

	if result.PartialSuccess() {
		buf.WriteString("\n")
		buf.WriteString(errStyle.Render(fmt.Sprintf("⚠ %d of %d actions failed", result.Failed, result.Total)))
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// SyncToMarkdown renders a sync outcome as a Markdown report.
func SyncToMarkdown(result *models.SyncResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Sync %s → %s\n\n", result.SourceAccount, result.TargetAccount)
	fmt.Fprintf(&buf, "**Synced at**: %s\n", stamp(result.SyncedAt))
	fmt.Fprintf(&buf, "**Dry run**: %t\n", result.DryRun)
	fmt.Fprintf(&buf, "**Added**: %d, **Updated**: %d, **Deleted**: %d, **Failed**: %d, **Total**: %d\n\n",
		result.Added, result.Updated, result.Deleted, result.Failed, result.Total)

	buf.WriteString("## Actions\n\n")
	if len(result.Actions) > 0 {
		buf.WriteString("| # | Action | Item | Status | Error |\n|---|---|---|---|---|\n")
		for i, a := range result.Actions {
			fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n", i+1, a.Kind, itemLabel(a.ItemFilename, a.ItemID), a.Status, a.Error)
		}
	}

	return buf.Bytes()
}

// ActionsToCSV writes one row per action with columns: action, item_id, filename, status, error.
func ActionsToCSV(actions []models.SyncAction) ([]byte, error) {
	rows := [][]string{{"action", "item_id", "filename", "status", "error"}}
	for _, a := range actions {
		rows = append(rows, []string{a.Kind.String(), a.ItemID, a.ItemFilename, a.Status.String(), a.Error})
	}
	return writeCSV(rows)
}

// RunsToText renders a history listing, newest first as given.
func RunsToText(runs []models.RunSummary) []byte {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded yet.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Found %d runs:\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(&buf, "%s  %-7s %s  %s → %s\n", r.ID, r.Kind, stamp(r.RanAt), r.SourceAccount, r.TargetAccount)
		fmt.Fprintf(&buf, "   %s\n", runCounts(r))
	}
	return buf.Bytes()
}

func runCounts(r models.RunSummary) string {
	if r.Kind == models.RunCompare {
		return fmt.Sprintf("source %d, target %d, missing %d, different %d, extra %d",
			r.TotalSource, r.TotalTarget, r.Missing, r.Different, r.Extra)
	}
	s := fmt.Sprintf("added %d, updated %d, deleted %d, failed %d of %d", r.Added, r.Updated, r.Deleted, r.Failed, r.Total)
	if r.DryRun {
		s += " (dry run)"
	}
	return s
}

// RunDetailToText renders one stored run with its actions.
func RunDetailToText(detail *models.RunDetail) []byte {
	var buf bytes.Buffer

	buf.WriteString(headingStyle.Render(fmt.Sprintf("Run %s", detail.ID)))
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "Kind: %s\nRan at: %s\nAccounts: %s → %s\n%s\n",
		detail.Kind, stamp(detail.RanAt), detail.SourceAccount, detail.TargetAccount, runCounts(detail.RunSummary))

	if len(detail.Actions) > 0 {
		buf.WriteString("\n")
		for i, a := range detail.Actions {
			fmt.Fprintf(&buf, "%d. %s %s %s [%s]", i+1, statusMark(a.Status), a.Kind, itemLabel(a.ItemFilename, a.ItemID), a.Status)
			if a.Error != "" {
				fmt.Fprintf(&buf, ": %s", a.Error)
			}
			buf.WriteString("\n")
		}
	}
	return buf.Bytes()
}

// RunsToCSV writes the history listing with one row per run.
func RunsToCSV(runs []models.RunSummary) ([]byte, error) {
	rows := [][]string{{"id", "kind", "ran_at", "source_account", "target_account", "dry_run",
		"total_source", "total_target", "missing", "different", "extra",
		"added", "updated", "deleted", "failed", "total"}}
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID, string(r.Kind), r.RanAt.UTC().Format(time.RFC3339), r.SourceAccount, r.TargetAccount, strconv.FormatBool(r.DryRun),
			strconv.Itoa(r.TotalSource), strconv.Itoa(r.TotalTarget), strconv.Itoa(r.Missing), strconv.Itoa(r.Different), strconv.Itoa(r.Extra),
			strconv.Itoa(r.Added), strconv.Itoa(r.Updated), strconv.Itoa(r.Deleted), strconv.Itoa(r.Failed), strconv.Itoa(r.Total),
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJSON marshals v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ToYAML marshals v with two-space indentation.
func ToYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Render encodes a result in the given format. Supported values are
// *models.CompareResult, *models.SyncResult, []models.RunSummary and *models.RunDetail.
func Render(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ToJSON(v, true)
	case FormatYAML:
		return ToYAML(v)
	}

	switch r := v.(type) {
	case *models.CompareResult:
		switch format {
		case FormatCSV:
			return CompareToCSV(r)
		case FormatMarkdown:
			return CompareToMarkdown(r), nil
		default:
			return CompareToText(r), nil
		}
	case *models.SyncResult:
		switch format {
		case FormatCSV:
			return ActionsToCSV(r.Actions)
		case FormatMarkdown:
			return SyncToMarkdown(r), nil
		default:
			return SyncToText(r), nil
		}
	case []models.RunSummary:
		if format == FormatCSV {
			return RunsToCSV(r)
		}
		return RunsToText(r), nil
	case *models.RunDetail:
		if format == FormatCSV {
			return ActionsToCSV(r.Actions)
		}
		return RunDetailToText(r), nil
	default:
		return nil, fmt.Errorf("%w: cannot render %T", shared.ErrInvalidInput, v)
	}
}

// DefaultExportName builds a file name such as compare_20240501T120000Z.md.
func DefaultExportName(kind string, at time.Time, format Format) string {
	return fmt.Sprintf("%s_%s%s", kind, at.UTC().Format("20060102T150405Z"), format.Extension())
}

// WriteExport renders v and writes it to path on fs, creating parent directories.
func WriteExport(fs afero.Fs, path string, v any, format Format) error {
	data, err := Render(v, format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
