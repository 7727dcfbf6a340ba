// Package mapper builds canonical records from labeled CV sections.
package mapper

import "github.com/draftwerk/cvpipe/pkg/utils"

// Gazetteer answers whether a token names a known locality. Injected into the
// Mapper so deployments can swap in richer lookups.
type Gazetteer interface {
	Contains(place string) bool
}

// SetGazetteer is a Gazetteer backed by a fixed set of place names.
type SetGazetteer struct {
	places map[string]struct{}
}

// NewSetGazetteer builds a gazetteer from place names; matching is
// case-insensitive and diacritic-folded.
func NewSetGazetteer(places []string) *SetGazetteer {
	set := make(map[string]struct{}, len(places))
	for _, p := range places {
		set[utils.FoldDiacritics(p)] = struct{}{}
	}
	return &SetGazetteer{places: set}
}

// Contains reports whether place is in the gazetteer.
func (g *SetGazetteer) Contains(place string) bool {
	_, ok := g.places[utils.FoldDiacritics(place)]
	return ok
}

// DefaultGazetteer returns the built-in lookup of Dutch cities commonly seen
// in CV headers.
func DefaultGazetteer() *SetGazetteer {
	return NewSetGazetteer([]string{
		"Amsterdam", "Rotterdam", "Den Haag", "Utrecht", "Eindhoven", "Tilburg",
		"Groningen", "Almere", "Breda", "Nijmegen", "Enschede", "Haarlem",
		"Arnhem", "Zaandam", "Amersfoort", "Apeldoorn", "Hoofddorp", "Maastricht",
		"Leiden", "Dordrecht", "Zoetermeer", "Zwolle", "Ede", "Emmen",
		"Delft", "Venlo", "Deventer", "Leeuwarden", "Alkmaar", "Helmond",
		"Purmerend", "Schiedam", "Amstelveen", "Vlaardingen", "Hoorn",
		"Rijswijk", "Spijkenisse", "Veenendaal", "Nijkerk", "IJsselstein",
		"Capelle aan den IJssel", "Hardenberg", "Weert", "Zwijndrecht",
	})
}
