package tasks

import (
	"fmt"

	"github.com/desertthunder/photomirror/internal/models"
	"github.com/desertthunder/photomirror/internal/shared"
)

// Compare diffs a source catalog against a target catalog by item ID.
//
// Missing items keep source order, extra items keep target order, and
// metadata differences follow source order then [models.ComparableFields]
// order. Inputs are not modified. An empty or duplicated ID on either side
// returns [shared.ErrMalformedCatalog].
//
// ComparedAt and the account names are left for the caller to stamp.
func Compare(source, target []models.Item) (*models.CompareResult, error) {
	sourceIndex, err := indexItems("source", source)
	if err != nil {
		return nil, err
	}
	targetIndex, err := indexItems("target", target)
	if err != nil {
		return nil, err
	}

	result := &models.CompareResult{
		TotalSource:       len(source),
		TotalTarget:       len(target),
		MissingOnTarget:   []models.Item{},
		DifferentMetadata: []models.MetadataDiff{},
		ExtraOnTarget:     []models.Item{},
	}

	for _, s := range source {
		t, ok := targetIndex[s.ID]
		if !ok {
			result.MissingOnTarget = append(result.MissingOnTarget, s)
			continue
		}
		result.DifferentMetadata = append(result.DifferentMetadata, diffItem(s, t)...)
	}

	for _, t := range target {
		if _, ok := sourceIndex[t.ID]; !ok {
			result.ExtraOnTarget = append(result.ExtraOnTarget, t)
		}
	}

	return result, nil
}

func indexItems(side string, items []models.Item) (map[string]models.Item, error) {
	index := make(map[string]models.Item, len(items))
	for i, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: %s item %d (%s) has no id", shared.ErrMalformedCatalog, side, i, item.Filename)
		}
		if _, dup := index[item.ID]; dup {
			return nil, fmt.Errorf("%w: %s id %s appears more than once", shared.ErrMalformedCatalog, side, item.ID)
		}
		index[item.ID] = item
	}
	return index, nil
}

// diffItem emits one record per unequal comparable field.
func diffItem(source, target models.Item) []models.MetadataDiff {
	var diffs []models.MetadataDiff
	for _, field := range models.ComparableFields {
		sv, _ := source.FieldValue(field)
		tv, _ := target.FieldValue(field)
		if sv != tv {
			diffs = append(diffs, models.MetadataDiff{
				ItemID:      source.ID,
				Field:       field,
				SourceValue: sv,
				TargetValue: tv,
			})
		}
	}
	return diffs
}
