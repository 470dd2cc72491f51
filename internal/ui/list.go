package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/photomirror/internal/models"
)

var (
	_ list.Item = planItem{}
)

// planItem is one row of the planned-changes list.
type planItem struct {
	kind     models.ActionKind
	itemID   string
	filename string
	diffs    []models.MetadataDiff
}

func (i planItem) FilterValue() string { return i.filename + " " + i.itemID }

func (i planItem) Title() string {
	name := i.filename
	if name == "" {
		name = i.itemID
	}
	switch i.kind {
	case models.ActionUpdate:
		return "~ " + name
	case models.ActionDelete:
		return "- " + name
	default:
		return "+ " + name
	}
}

func (i planItem) Description() string {
	switch i.kind {
	case models.ActionUpdate:
		fields := make([]string, len(i.diffs))
		for j, d := range i.diffs {
			fields[j] = fmt.Sprintf("%s: %s → %s", d.Field, d.SourceValue, d.TargetValue)
		}
		return strings.Join(fields, " • ")
	case models.ActionDelete:
		return "extra on target • " + i.itemID
	default:
		return "missing on target • " + i.itemID
	}
}

// planItems lists the changes of a comparison in execution order: adds, updates, deletes.
func planItems(result *models.CompareResult, names map[string]string) []list.Item {
	items := make([]list.Item, 0, result.PlanSize())
	for _, it := range result.MissingOnTarget {
		items = append(items, planItem{kind: models.ActionAdd, itemID: it.ID, filename: it.Filename})
	}
	for _, g := range result.DiffsByItem() {
		items = append(items, planItem{kind: models.ActionUpdate, itemID: g.ItemID, filename: names[g.ItemID], diffs: g.Diffs})
	}
	for _, it := range result.ExtraOnTarget {
		items = append(items, planItem{kind: models.ActionDelete, itemID: it.ID, filename: it.Filename})
	}
	return items
}

// diffNames recovers display names for updated items from their filename diffs.
func diffNames(result *models.CompareResult) map[string]string {
	names := make(map[string]string)
	for _, d := range result.DifferentMetadata {
		if d.Field == models.FieldFilename {
			names[d.ItemID] = d.SourceValue
		}
	}
	return names
}
