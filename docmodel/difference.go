package docmodel

import "fmt"

// DiffType classifies a Difference.
type DiffType string

const (
	Addition     DiffType = "addition"
	Deletion     DiffType = "deletion"
	Modification DiffType = "modification"
	FormatChange DiffType = "format_change"
	VisualChange DiffType = "visual_change"
)

// Importance is the reviewer-facing weight of a Difference.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Valid reports whether i is one of the three levels. The empty value is
// "unset" and is not valid.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// LocationKind selects which field of a Location is populated.
type LocationKind string

const (
	LocTokenRange LocationKind = "token_range"
	LocParagraph  LocationKind = "paragraph"
	LocPage       LocationKind = "page"
	LocTextKey    LocationKind = "text_key"
)

// TokenRange is a pair of half-open index ranges into the original and
// modified token sequences.
type TokenRange struct {
	Unit      string `json:"unit"` // line or word
	OrigStart int    `json:"orig_start"`
	OrigEnd   int    `json:"orig_end"`
	ModStart  int    `json:"mod_start"`
	ModEnd    int    `json:"mod_end"`
}

// Location pins a Difference to a place in the documents. Exactly one of the
// pointer fields (or TextKey) is set, as named by Kind.
type Location struct {
	Kind      LocationKind `json:"kind"`
	Range     *TokenRange  `json:"range,omitempty"`
	Paragraph *int         `json:"paragraph,omitempty"`
	ModPara   *int         `json:"modified_paragraph,omitempty"`
	Page      *int         `json:"page,omitempty"`
	BBox      *BBox        `json:"bbox,omitempty"`
	TextKey   string       `json:"text_key,omitempty"`
}

// RangeLocation builds a token-range Location.
func RangeLocation(unit string, i1, i2, j1, j2 int) Location {
	return Location{Kind: LocTokenRange, Range: &TokenRange{Unit: unit, OrigStart: i1, OrigEnd: i2, ModStart: j1, ModEnd: j2}}
}

// ParagraphLocation builds a paragraph-index Location.
func ParagraphLocation(orig, mod int) Location {
	return Location{Kind: LocParagraph, Paragraph: &orig, ModPara: &mod}
}

// PageLocation builds a page Location; bbox may be nil.
func PageLocation(page int, bbox *BBox) Location {
	return Location{Kind: LocPage, Page: &page, BBox: bbox}
}

// KeyLocation builds a text-key Location.
func KeyLocation(key string) Location {
	return Location{Kind: LocTextKey, TextKey: key}
}

func (l Location) String() string {
	switch l.Kind {
	case LocTokenRange:
		if l.Range != nil {
			return fmt.Sprintf("%s %d-%d/%d-%d", l.Range.Unit, l.Range.OrigStart, l.Range.OrigEnd, l.Range.ModStart, l.Range.ModEnd)
		}
	case LocParagraph:
		if l.Paragraph != nil {
			return fmt.Sprintf("paragraph %d", *l.Paragraph)
		}
	case LocPage:
		if l.Page != nil {
			return fmt.Sprintf("page %d", *l.Page)
		}
	case LocTextKey:
		return fmt.Sprintf("text %q", l.TextKey)
	}
	return string(l.Kind)
}

// Difference is one reviewer-visible change between the two documents.
type Difference struct {
	Type            DiffType       `json:"type"`
	Location        Location       `json:"location"`
	OriginalContent string         `json:"original_content,omitempty"`
	ModifiedContent string         `json:"modified_content,omitempty"`
	Importance      Importance     `json:"importance,omitempty"`
	Confidence      *float64       `json:"confidence,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// SetMeta sets a metadata entry, allocating the map on first use.
func (d *Difference) SetMeta(key string, v any) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]any)
	}
	d.Metadata[key] = v
}
