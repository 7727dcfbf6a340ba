// Package render produces the standardized CV document from a canonical
// record. The layout is fixed; rendering the same record twice yields
// byte-identical output.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/draftwerk/cvpipe/internal/dates"
	"github.com/draftwerk/cvpipe/internal/models"
)

const documentTemplate = `CURRICULUM VITAE
{{range .Header}}
{{- .}}
{{end}}
{{- range .Sections}}
{{.Title}}
{{range .Lines}}
{{- .}}
{{end}}
{{- end}}`

// sectionView is one rendered block: a heading plus preformatted lines.
type sectionView struct {
	Title string
	Lines []string
}

type documentView struct {
	Header   []string
	Sections []sectionView
}

// Renderer renders canonical records into the standardized layout. It
// assumes the record has already passed validation (or been explicitly
// approved past it) and performs no checks of its own.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer returns a renderer with the fixed document template.
func NewRenderer() *Renderer {
	return &Renderer{
		tmpl: template.Must(template.New("cv").Parse(documentTemplate)),
	}
}

// Render produces the standardized document bytes for record.
func (r *Renderer) Render(record models.CanonicalRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, buildView(record)); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

func buildView(record models.CanonicalRecord) documentView {
	var view documentView

	id := record.Identity
	if id.Name != "" {
		view.Header = append(view.Header, "Naam: "+id.Name)
	}
	if id.Location != "" {
		view.Header = append(view.Header, "Woonplaats: "+id.Location)
	}
	if id.BirthYear != nil {
		view.Header = append(view.Header, fmt.Sprintf("Geboortejaar: %d", *id.BirthYear))
	}
	if id.Email != "" {
		view.Header = append(view.Header, "E-mail: "+id.Email)
	}
	if id.Phone != "" {
		view.Header = append(view.Header, "Telefoon: "+id.Phone)
	}

	if record.Profile != "" {
		view.Sections = append(view.Sections, sectionView{
			Title: "PROFIEL",
			Lines: strings.Split(record.Profile, "\n"),
		})
	}

	if len(record.Positions) > 0 {
		sec := sectionView{Title: "WERKERVARING"}
		for _, p := range record.Positions {
			sec.Lines = append(sec.Lines, entryLine(p.Period, joinOrgTitle(p.Organization, p.Title)))
			for _, d := range p.Description {
				sec.Lines = append(sec.Lines, "    "+d)
			}
		}
		view.Sections = append(view.Sections, sec)
	}

	if len(record.Education) > 0 {
		sec := sectionView{Title: "OPLEIDING"}
		for _, e := range record.Education {
			sec.Lines = append(sec.Lines, entryLine(e.Period, joinOrgTitle(e.Institution, e.Degree)))
		}
		view.Sections = append(view.Sections, sec)
	}

	if len(record.Courses) > 0 {
		sec := sectionView{Title: "CURSUSSEN"}
		for _, c := range record.Courses {
			sec.Lines = append(sec.Lines, entryLine(c.Period, c.Name))
		}
		view.Sections = append(view.Sections, sec)
	}

	if len(record.Skills) > 0 {
		view.Sections = append(view.Sections, sectionView{
			Title: "VAARDIGHEDEN",
			Lines: []string{strings.Join(record.Skills, ", ")},
		})
	}
	if len(record.Languages) > 0 {
		view.Sections = append(view.Sections, sectionView{
			Title: "TALEN",
			Lines: []string{strings.Join(record.Languages, ", ")},
		})
	}

	return view
}

// entryLine puts the canonical period in a fixed-width column before the
// entry text so entries align vertically.
func entryLine(period models.TemporalRange, text string) string {
	formatted := dates.Format(period)
	if formatted == "" {
		formatted = "-"
	}
	return fmt.Sprintf("%-14s %s", formatted, text)
}

func joinOrgTitle(org, title string) string {
	switch {
	case org == "":
		return title
	case title == "":
		return org
	default:
		return org + ", " + title
	}
}
