// Package report renders a comparison Result as a self-contained HTML page.
package report

import (
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/hazyhaar/docdiff/docmodel"
)

// diffView is the template-friendly projection of a Difference.
type diffView struct {
	Type       string
	Location   string
	Original   string
	Modified   string
	Importance string
	Confidence string
}

type outcomeView struct {
	Engine string
	State  string
	Notes  []string
}

type pageView struct {
	Page  int
	Score string
}

type view struct {
	ID          string
	OriginalID  string
	ModifiedID  string
	Timestamp   string
	Summary     string
	Similarity  string
	Counts      docmodel.Counts
	Differences []diffView
	Words       []diffView
	Semantic    []docmodel.SemanticMatch
	Formatting  []docmodel.FormattingChange
	Pages       []pageView
	Dates       docmodel.DateReport
	Diagnostics []outcomeView
}

var pageTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":    func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"fields": sortedFields,
}).Parse(`<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>Comparison {{.ID}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:1000px;margin:2rem auto;padding:0 1rem;color:#222;background:#fafafa}
h1{font-size:1.4rem;border-bottom:2px solid #e0e0e0;padding-bottom:.5rem}
h2{font-size:1.1rem;margin-top:2rem}
table{border-collapse:collapse;width:100%;background:#fff}
th,td{border:1px solid #e0e0e0;padding:.4rem;text-align:left;vertical-align:top;font-size:.9rem}
.meta{font-size:.8rem;color:#666}
.high{background:#fde2e1}.medium{background:#fff4d6}.low{background:#eef6ee}
del{color:#a11}ins{color:#161;text-decoration:none}
.empty{color:#999;font-style:italic}
</style></head><body>
<h1>Comparison {{.ID}}</h1>
<p class="meta">{{.OriginalID}} &rarr; {{.ModifiedID}} &middot; {{.Timestamp}} &middot; similarity {{.Similarity}}</p>
<p>{{.Summary}}</p>

<h2>Differences ({{.Counts.Total}})</h2>
{{- if not .Differences}}
<p class="empty">No differences.</p>
{{- else}}
<table><tr><th>Type</th><th>Location</th><th>Original</th><th>Modified</th><th>Importance</th><th>Confidence</th></tr>
{{- range .Differences}}
<tr class="{{.Importance}}"><td>{{.Type}}</td><td>{{.Location}}</td><td><del>{{.Original}}</del></td><td><ins>{{.Modified}}</ins></td><td>{{.Importance}}</td><td>{{.Confidence}}</td></tr>
{{- end}}
</table>
{{- end}}

{{- if .Words}}
<h2>Word changes</h2>
<table><tr><th>Type</th><th>Words</th><th>Original</th><th>Modified</th></tr>
{{- range .Words}}
<tr><td>{{.Type}}</td><td>{{.Location}}</td><td><del>{{.Original}}</del></td><td><ins>{{.Modified}}</ins></td></tr>
{{- end}}
</table>
{{- end}}

{{- if .Semantic}}
<h2>Semantic changes</h2>
<table><tr><th>Original sentence</th><th>Closest match</th><th>Similarity</th></tr>
{{- range .Semantic}}
<tr><td>{{.OriginalSentence}}</td><td>{{.MatchedSentence}}</td><td>{{pct .Similarity}}</td></tr>
{{- end}}
</table>
{{- end}}

{{- if .Formatting}}
<h2>Formatting changes</h2>
<table><tr><th>Text</th><th>Attribute</th><th>Before</th><th>After</th></tr>
{{- range $c := .Formatting}}
{{- range $f := fields $c.Differences}}
<tr><td>{{$c.Text}}</td><td>{{$f.Name}}</td><td>{{$f.Before}}</td><td>{{$f.After}}</td></tr>
{{- end}}
{{- end}}
</table>
{{- end}}

{{- if .Pages}}
<h2>Pages</h2>
<table><tr><th>Page</th><th>Structural similarity</th></tr>
{{- range .Pages}}
<tr><td>{{.Page}}</td><td>{{.Score}}</td></tr>
{{- end}}
</table>
{{- end}}

{{- if or .Dates.Added .Dates.Removed}}
<h2>Dates</h2>
<p>Added: {{range .Dates.Added}}<ins>{{.}}</ins> {{else}}none{{end}}</p>
<p>Removed: {{range .Dates.Removed}}<del>{{.}}</del> {{else}}none{{end}}</p>
{{- end}}

<h2>Diagnostics</h2>
<table><tr><th>Engine</th><th>State</th><th>Notes</th></tr>
{{- range .Diagnostics}}
<tr><td>{{.Engine}}</td><td>{{.State}}</td><td>{{range .Notes}}<div>{{.}}</div>{{end}}</td></tr>
{{- end}}
</table>
</body></html>`))

type fieldView struct {
	Name   string
	Before string
	After  string
}

func sortedFields(m map[string]docmodel.FieldChange) []fieldView {
	out := make([]fieldView, 0, len(m))
	for name, fc := range m {
		out = append(out, fieldView{Name: name, Before: fmtValue(fc.Before), After: fmtValue(fc.After)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func fmtValue(v any) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprint(v)
}

func newDiffView(d docmodel.Difference) diffView {
	dv := diffView{
		Type:       string(d.Type),
		Location:   d.Location.String(),
		Original:   d.OriginalContent,
		Modified:   d.ModifiedContent,
		Importance: string(d.Importance),
	}
	if d.Confidence != nil {
		dv.Confidence = fmt.Sprintf("%.2f", *d.Confidence)
	}
	return dv
}

// Render writes res as HTML. All document content is escaped.
func Render(w io.Writer, res *docmodel.Result) error {
	if res == nil {
		return fmt.Errorf("report: nil result")
	}
	return pageTmpl.Execute(w, build(res))
}

func build(res *docmodel.Result) view {
	v := view{
		ID:         res.ComparisonID,
		OriginalID: res.OriginalDocumentID,
		ModifiedID: res.ModifiedDocumentID,
		Timestamp:  res.Timestamp.Format("2006-01-02 15:04:05 MST"),
		Summary:    res.Summary,
		Similarity: fmt.Sprintf("%.1f%%", res.SimilarityScore*100),
		Counts:     res.Counts,
		Semantic:   res.Semantic.Matches,
		Formatting: res.Formatting.Changed,
		Dates:      res.Dates,
	}
	for _, d := range res.Differences {
		v.Differences = append(v.Differences, newDiffView(d))
	}
	for _, d := range res.Text.Words {
		v.Words = append(v.Words, newDiffView(d))
	}
	for _, p := range res.Visual.PageScores {
		v.Pages = append(v.Pages, pageView{Page: p.Page, Score: fmt.Sprintf("%.3f", p.Score)})
	}
	for _, o := range res.Diagnostics {
		v.Diagnostics = append(v.Diagnostics, outcomeView{Engine: o.Engine, State: string(o.State), Notes: o.Notes})
	}
	return v
}
