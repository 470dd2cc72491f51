package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var comparedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleCompare() *models.CompareResult {
	return &models.CompareResult{
		SourceAccount:   "src@example.com",
		TargetAccount:   "dst@example.com",
		ComparedAt:      comparedAt,
		TotalSource:     3,
		TotalTarget:     3,
		MissingOnTarget: []models.Item{{ID: "a", Filename: "beach.jpg"}},
		DifferentMetadata: []models.MetadataDiff{
			{ItemID: "b", Field: models.FieldFilename, SourceValue: "new.jpg", TargetValue: "old.jpg"},
			{ItemID: "b", Field: models.FieldWidth, SourceValue: "100", TargetValue: "50"},
		},
		ExtraOnTarget: []models.Item{{ID: "z", Filename: "stray, file.png"}},
	}
}

func sampleSync() *models.SyncResult {
	return &models.SyncResult{
		ID:            "run-1",
		SourceAccount: "src@example.com",
		TargetAccount: "dst@example.com",
		SyncedAt:      comparedAt,
		Added:         1,
		Failed:        1,
		Total:         3,
		Actions: []models.SyncAction{
			{Kind: models.ActionAdd, ItemID: "a", ItemFilename: "beach.jpg", Status: models.StatusCompleted},
			{Kind: models.ActionAdd, ItemID: "c", ItemFilename: "cat.jpg", Status: models.StatusFailed, Error: "upload failed"},
			{Kind: models.ActionDelete, ItemID: "z", ItemFilename: "stray.png", Status: models.StatusPending},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"TXT", FormatText},
		{"json", FormatJSON},
		{"yml", FormatYAML},
		{"csv", FormatCSV},
		{"md", FormatMarkdown},
	}

	for _, tt := range tc {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestCompareRenderers(t *testing.T) {
	t.Run("CompareToText", func(t *testing.T) {
		output := string(CompareToText(sampleCompare()))

		for _, want := range []string{
			"src@example.com", "dst@example.com",
			"Missing on target (1)", "beach.jpg (a)",
			"Different metadata (1 items, 2 fields)", `"new.jpg" → "old.jpg"`,
			"Extra on target (1)", "4 planned actions",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("CompareToText in sync", func(t *testing.T) {
		output := string(CompareToText(&models.CompareResult{SourceAccount: "s", TargetAccount: "t"}))
		if !strings.Contains(output, "in sync") {
			t.Errorf("expected in sync message, got %s", output)
		}
	})

	t.Run("CompareToMarkdown", func(t *testing.T) {
		output := string(CompareToMarkdown(sampleCompare()))

		if !strings.HasPrefix(output, "# Compare src@example.com → dst@example.com") {
			t.Errorf("unexpected heading: %s", output)
		}
		if !strings.Contains(output, "| b | width | 100 | 50 |") {
			t.Errorf("missing diff row:\n%s", output)
		}
		if !strings.Contains(output, "1. beach.jpg (a)") {
			t.Errorf("missing numbered item:\n%s", output)
		}
	})

	t.Run("CompareToCSV", func(t *testing.T) {
		data, err := CompareToCSV(sampleCompare())
		if err != nil {
			t.Fatalf("CompareToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 5 {
			t.Fatalf("expected header and 4 rows, got %d:\n%s", len(lines), data)
		}
		if lines[0] != "change,item_id,filename,field,source_value,target_value" {
			t.Errorf("unexpected header: %s", lines[0])
		}
		if lines[4] != `extra,z,"stray, file.png",,,` {
			t.Errorf("expected quoted filename, got %s", lines[4])
		}
	})
}

func TestSyncRenderers(t *testing.T) {
	t.Run("SyncToText", func(t *testing.T) {
		output := string(SyncToText(sampleSync()))

		for _, want := range []string{"Added: 1", "Failed: 1", "cat.jpg (c)", "upload failed", "(pending)", "1 of 3 actions failed"} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("SyncToText dry run with nothing to do", func(t *testing.T) {
		output := string(SyncToText(&models.SyncResult{DryRun: true}))
		if !strings.Contains(output, "[dry run]") || !strings.Contains(output, "Nothing to do") {
			t.Errorf("unexpected output: %s", output)
		}
	})

	t.Run("SyncToMarkdown", func(t *testing.T) {
		output := string(SyncToMarkdown(sampleSync()))
		if !strings.Contains(output, "| 2 | add | cat.jpg (c) | failed | upload failed |") {
			t.Errorf("missing action row:\n%s", output)
		}
	})

	t.Run("ActionsToCSV", func(t *testing.T) {
		data, err := ActionsToCSV(sampleSync().Actions)
		if err != nil {
			t.Fatalf("ActionsToCSV failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "action,item_id,filename,status,error\n") {
			t.Errorf("unexpected header: %s", output)
		}
		if !strings.Contains(output, "delete,z,stray.png,pending,") {
			t.Errorf("missing delete row:\n%s", output)
		}
	})
}

func TestHistoryRenderers(t *testing.T) {
	runs := []models.RunSummary{
		{ID: "r2", Kind: models.RunSync, SourceAccount: "s", TargetAccount: "t", RanAt: comparedAt, DryRun: true, Added: 2, Total: 2},
		{ID: "r1", Kind: models.RunCompare, SourceAccount: "s", TargetAccount: "t", RanAt: comparedAt, TotalSource: 4, Missing: 2},
	}

	t.Run("RunsToText", func(t *testing.T) {
		output := string(RunsToText(runs))
		for _, want := range []string{"Found 2 runs", "added 2", "(dry run)", "source 4", "missing 2"} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q:\n%s", want, output)
			}
		}
		if !strings.Contains(string(RunsToText(nil)), "No runs") {
			t.Error("expected empty history message")
		}
	})

	t.Run("RunsToCSV", func(t *testing.T) {
		data, err := RunsToCSV(runs)
		if err != nil {
			t.Fatalf("RunsToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), "r2,sync,2024-05-01T12:00:00Z,s,t,true") {
			t.Errorf("unexpected CSV:\n%s", data)
		}
	})

	t.Run("RunDetailToText", func(t *testing.T) {
		detail := &models.RunDetail{RunSummary: runs[0], Actions: sampleSync().Actions}
		output := string(RunDetailToText(detail))
		if !strings.Contains(output, "Run r2") || !strings.Contains(output, "3. ") {
			t.Errorf("unexpected detail output:\n%s", output)
		}
	})
}

func TestRender(t *testing.T) {
	t.Run("JSON uses result keys", func(t *testing.T) {
		data, err := Render(sampleSync(), FormatJSON)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		for _, key := range []string{"source_account", "sync_date", "failed_actions", "total_actions", "actions"} {
			if _, ok := decoded[key]; !ok {
				t.Errorf("JSON missing key %s", key)
			}
		}
	})

	t.Run("YAML uses enum names", func(t *testing.T) {
		data, err := Render(sampleCompare(), FormatYAML)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}

		var decoded map[string]any
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if decoded["total_source_items"] != 3 {
			t.Errorf("expected total_source_items 3, got %v", decoded["total_source_items"])
		}

		actions, err := Render(sampleSync(), FormatYAML)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if !strings.Contains(string(actions), "action: delete") || !strings.Contains(string(actions), "status: pending") {
			t.Errorf("expected enum names in YAML:\n%s", actions)
		}
	})

	t.Run("RunDetail JSON flattens summary", func(t *testing.T) {
		detail := &models.RunDetail{RunSummary: models.RunSummary{ID: "r1", Kind: models.RunSync}, Actions: []models.SyncAction{}}
		data, err := Render(detail, FormatJSON)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if !strings.Contains(string(data), `"id": "r1"`) || !strings.Contains(string(data), `"actions": []`) {
			t.Errorf("unexpected JSON:\n%s", data)
		}
	})

	t.Run("unsupported value", func(t *testing.T) {
		if _, err := Render(42, FormatText); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	fs := afero.NewMemMapFs()

	name := DefaultExportName("compare", comparedAt, FormatMarkdown)
	if name != "compare_20240501T120000Z.md" {
		t.Errorf("unexpected export name %s", name)
	}

	path := "reports/" + name
	if err := WriteExport(fs, path, sampleCompare(), FormatMarkdown); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.Contains(string(data), "## Missing on target (1)") {
		t.Errorf("unexpected export content:\n%s", data)
	}
}
