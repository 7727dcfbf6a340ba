// Package e2e provides end-to-end tests running a synthetic CV corpus through
// the full pipeline and orchestrator.
package e2e

import "fmt"

// CorpusDocument is one synthetic CV in the end-to-end corpus.
type CorpusDocument struct {
	ID      string
	Name    string
	Content string
	// WantPass marks CVs that should clear validation; the rest are
	// deliberately thin and should land in the review queue.
	WantPass bool
}

// Corpus holds the generated documents plus expected outcome counts.
type Corpus struct {
	Documents []CorpusDocument
	TotalPass int
	TotalThin int
}

var profiles = []struct {
	name   string
	city   string
	org    string
	title  string
	study  string
	school string
	skill  string
}{
	{"Jan de Vries", "Amsterdam", "Acme BV", "Projectmanager", "Informatica", "TU Delft", "Scrum"},
	{"Sanne Bakker", "Rotterdam", "Globex", "Consultant", "Bedrijfskunde", "Erasmus Universiteit", "Prince2"},
	{"Pieter Jansen", "Utrecht", "Initech", "Software Engineer", "Technische Informatica", "TU Eindhoven", "Go"},
	{"Fatima el Amrani", "Den Haag", "Umbrella Holding", "Analist", "Econometrie", "Universiteit Leiden", "Python"},
	{"Kees van Dijk", "Groningen", "Vandelay", "Teamleider", "Werktuigbouwkunde", "RUG", "Lean"},
}

// BuildCorpus generates n synthetic CVs. Every fourth CV is a thin fragment
// that extracts fine but should fail validation.
func BuildCorpus(n int) *Corpus {
	c := &Corpus{}
	for i := 0; i < n; i++ {
		p := profiles[i%len(profiles)]
		id := fmt.Sprintf("cv-%03d", i)
		if i%4 == 3 {
			c.Documents = append(c.Documents, CorpusDocument{
				ID:      id,
				Name:    p.name,
				Content: thinCV(p.name),
			})
			c.TotalThin++
			continue
		}
		c.Documents = append(c.Documents, CorpusDocument{
			ID:       id,
			Name:     p.name,
			Content:  fullCV(i, p.name, p.city, p.org, p.title, p.study, p.school, p.skill),
			WantPass: true,
		})
		c.TotalPass++
	}
	return c
}

func fullCV(i int, name, city, org, title, study, school, skill string) string {
	startA := 2016 + i%4
	endA := startA + 3
	startB := 2008 + i%3
	endB := startB + 5
	return fmt.Sprintf(`%s
%s, %d

Profiel
Ervaren %s met een brede achtergrond in uiteenlopende projecten en
organisaties, gewend zelfstandig en in teamverband te werken.

Werkervaring
%d - heden  %s, %s
Verantwoordelijk voor de dagelijkse aansturing en planning.
Rapporteert aan de directie.
%d - %d  Voorheen Werkgever, %s
Uitvoering van projecten voor diverse opdrachtgevers.

Opleiding
%d - %d  %s, %s

Cursussen
2019  Rijbewijs C
2021  BHV herhaling

Vaardigheden
%s, Rapporteren, Plannen

Talen
Nederlands, Engels
`, name, city, 1975+i%20, title, endA, org, title, startB, endB, title, startB-6, startB-2, school, study, skill)
}

func thinCV(name string) string {
	return fmt.Sprintf("%s\n\nNotities\nNog aan te vullen.\n", name)
}
