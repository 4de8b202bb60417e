package fmtdiff

import "github.com/hazyhaar/docdiff/docmodel"

// compareRuns returns the comparable attributes that both runs carry and
// that differ. Text, page and note are never compared.
func compareRuns(a, b docmodel.Run) map[string]docmodel.FieldChange {
	diffs := make(map[string]docmodel.FieldChange)

	if a.FontName != "" && b.FontName != "" && a.FontName != b.FontName {
		diffs["font_name"] = docmodel.FieldChange{Before: a.FontName, After: b.FontName}
	}
	if a.FontSize != nil && b.FontSize != nil && *a.FontSize != *b.FontSize {
		diffs["font_size"] = docmodel.FieldChange{Before: *a.FontSize, After: *b.FontSize}
	}
	if a.Bold != nil && b.Bold != nil && *a.Bold != *b.Bold {
		diffs["bold"] = docmodel.FieldChange{Before: *a.Bold, After: *b.Bold}
	}
	if a.Italic != nil && b.Italic != nil && *a.Italic != *b.Italic {
		diffs["italic"] = docmodel.FieldChange{Before: *a.Italic, After: *b.Italic}
	}
	if a.Alignment != "" && b.Alignment != "" && a.Alignment != b.Alignment {
		diffs["alignment"] = docmodel.FieldChange{Before: a.Alignment, After: b.Alignment}
	}
	if a.BBox != nil && b.BBox != nil {
		boxDiff(diffs, "left", a.BBox.Left, b.BBox.Left)
		boxDiff(diffs, "top", a.BBox.Top, b.BBox.Top)
		boxDiff(diffs, "width", a.BBox.Width, b.BBox.Width)
		boxDiff(diffs, "height", a.BBox.Height, b.BBox.Height)
	}

	if len(diffs) == 0 {
		return nil
	}
	return diffs
}

func boxDiff(diffs map[string]docmodel.FieldChange, field string, a, b float64) {
	if a != b {
		diffs[field] = docmodel.FieldChange{Before: a, After: b}
	}
}
