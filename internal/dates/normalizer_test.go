package dates

import (
	"testing"

	"github.com/draftwerk/cvpipe/internal/models"
)

func intp(v int) *int { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantStart  *int
		wantEnd    *int
		wantGoing  bool
		wantConf   float64
		wantSwap   bool
	}{
		{name: "year range", in: "2015 - 2018", wantStart: intp(2015), wantEnd: intp(2018), wantConf: 1.0},
		{name: "year range en dash", in: "2015 – 2018", wantStart: intp(2015), wantEnd: intp(2018), wantConf: 1.0},
		{name: "ongoing dutch", in: "2020 - heden", wantStart: intp(2020), wantGoing: true, wantConf: 1.0},
		{name: "ongoing english", in: "2019 - present", wantStart: intp(2019), wantGoing: true, wantConf: 1.0},
		{name: "ongoing tot heden", in: "2020 - tot heden", wantStart: intp(2020), wantGoing: true, wantConf: 1.0},
		{name: "month year range", in: "Jan 2019 - Mar 2021", wantStart: intp(2019), wantEnd: intp(2021), wantConf: 0.8},
		{name: "dutch month range", in: "maart 2017 - oktober 2019", wantStart: intp(2017), wantEnd: intp(2019), wantConf: 0.8},
		{name: "abbreviated years", in: "sep '98 - jun '02", wantStart: intp(1998), wantEnd: intp(2002), wantConf: 0.8},
		{name: "single month year", in: "augustus 2016", wantStart: intp(2016), wantEnd: intp(2016), wantConf: 0.8},
		{name: "day month year", in: "15-03-2020", wantStart: intp(2020), wantEnd: intp(2020), wantConf: 0.8},
		{name: "month slash year", in: "03/2020", wantStart: intp(2020), wantEnd: intp(2020), wantConf: 0.8},
		{name: "bare year", in: "2014", wantStart: intp(2014), wantEnd: intp(2014), wantConf: 0.6},
		{name: "bare year embedded", in: "afgerond in 2014", wantStart: intp(2014), wantEnd: intp(2014), wantConf: 0.6},
		{name: "reversed range swapped", in: "2018 - 2015", wantStart: intp(2015), wantEnd: intp(2018), wantConf: 1.0, wantSwap: true},
		{name: "no date", in: "Projectmanager bij Acme", wantConf: 0},
		{name: "empty", in: "", wantConf: 0},
		{name: "out of range year", in: "1024 - 1025", wantConf: 0},
		{name: "phone number not a date", in: "06-12345678", wantConf: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if !eqIntp(got.StartYear, tt.wantStart) {
				t.Errorf("StartYear = %v, want %v", deref(got.StartYear), deref(tt.wantStart))
			}
			if !eqIntp(got.EndYear, tt.wantEnd) {
				t.Errorf("EndYear = %v, want %v", deref(got.EndYear), deref(tt.wantEnd))
			}
			if got.IsOngoing != tt.wantGoing {
				t.Errorf("IsOngoing = %v, want %v", got.IsOngoing, tt.wantGoing)
			}
			if got.ParseConfidence != tt.wantConf {
				t.Errorf("ParseConfidence = %v, want %v", got.ParseConfidence, tt.wantConf)
			}
			if got.WasCorrected != tt.wantSwap {
				t.Errorf("WasCorrected = %v, want %v", got.WasCorrected, tt.wantSwap)
			}
			if got.IsOngoing && got.EndYear != nil {
				t.Error("ongoing range must have nil EndYear")
			}
		})
	}
}

// start <= end must hold for every parsed range, post-correction.
func TestNormalizeMonotonicity(t *testing.T) {
	inputs := []string{
		"1995 - 2000", "2000 - 1995", "2020 - 2020", "1999 - 1998",
		"okt 2010 - feb 2008", "2001 - 2030",
	}
	for _, in := range inputs {
		got := Normalize(in)
		if got.StartYear != nil && got.EndYear != nil && *got.StartYear > *got.EndYear {
			t.Errorf("Normalize(%q): start %d > end %d", in, *got.StartYear, *got.EndYear)
		}
	}
}

// Re-normalizing the canonical string form yields an identical range.
func TestNormalizeIdempotentOnCanonicalForm(t *testing.T) {
	inputs := []string{"2015 - 2018", "2020 - heden", "maart 2017 - oktober 2019", "2014"}
	for _, in := range inputs {
		canonical := Normalize(Format(Normalize(in)))
		again := Normalize(Format(canonical))
		if !eqIntp(again.StartYear, canonical.StartYear) ||
			!eqIntp(again.EndYear, canonical.EndYear) ||
			again.IsOngoing != canonical.IsOngoing ||
			again.ParseConfidence != canonical.ParseConfidence ||
			again.RawText != canonical.RawText {
			t.Errorf("Normalize not idempotent on canonical form of %q: %+v vs %+v", in, canonical, again)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   models.TemporalRange
		want string
	}{
		{models.TemporalRange{StartYear: intp(2015), EndYear: intp(2018)}, "2015 - 2018"},
		{models.TemporalRange{StartYear: intp(2020), IsOngoing: true}, "2020 - heden"},
		{models.TemporalRange{StartYear: intp(2014), EndYear: intp(2014)}, "2014"},
		{models.TemporalRange{RawText: "onbekend"}, "onbekend"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		in            string
		wantRemainder string
		wantParsed    bool
	}{
		{"2018 - heden  Acme BV, Projectmanager", "Acme BV, Projectmanager", true},
		{"Jan 2019 - Mar 2021 Acme Corp", "Acme Corp", true},
		{"2003 - 2007  TU Delft, Informatica", "TU Delft, Informatica", true},
		{"Scrum Master training", "Scrum Master training", false},
	}
	for _, tt := range tests {
		tr, remainder := Extract(tt.in)
		if tr.Parsed() != tt.wantParsed {
			t.Errorf("Extract(%q) parsed = %v, want %v", tt.in, tr.Parsed(), tt.wantParsed)
		}
		if remainder != tt.wantRemainder {
			t.Errorf("Extract(%q) remainder = %q, want %q", tt.in, remainder, tt.wantRemainder)
		}
	}
}

func TestContainsDate(t *testing.T) {
	if !ContainsDate("2018 - heden  Acme BV") {
		t.Error("expected date in employer line")
	}
	if ContainsDate("Projectmanager, verantwoordelijk voor planning") {
		t.Error("no date expected in description line")
	}
}

func eqIntp(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
