package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
)

const maxAge = 130

var (
	// "Paciente: Juan Pérez", "nombre - maría lópez"
	nameLabeled = regexp.MustCompile(`(?i)\b(?:paciente|nombre)\s*[:\-]\s*(\p{L}+(?:[ \t]+\p{L}+){0,4})`)
	// "paciente Juan Pérez", "se llama Juan Pérez": capitalized words only
	nameBare = regexp.MustCompile(`\b(?:[Pp]aciente|[Nn]ombre|[Ss]e llama|[Mm]i nombre es)[ \t]+(\p{Lu}\p{Ll}+(?:[ \t]+\p{Lu}\p{Ll}+){0,3})`)

	ageLabeled = regexp.MustCompile(`(?i)\bedad\s*[:\-]?\s*(\d{1,3})\b`)
	ageYears   = regexp.MustCompile(`(?i)\b(\d{1,3})\s*años\b`)

	dateISO  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dateDMY  = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})\b`)
	dateLong = regexp.MustCompile(`(?i)\b(\d{1,2})\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)\s+(?:de(?:l)?\s+)?(\d{4})\b`)
)

// nameStopWords end a labeled name, e.g. "Paciente: Juan Pérez edad 40"
var nameStopWords = map[string]bool{
	"edad": true, "fecha": true, "con": true, "presenta": true, "tiene": true,
	"refiere": true, "sexo": true, "y": true, "años": true,
}

var spanishMonths = map[string]int{
	"enero": 1, "febrero": 2, "marzo": 3, "abril": 4, "mayo": 5, "junio": 6,
	"julio": 7, "agosto": 8, "septiembre": 9, "setiembre": 9,
	"octubre": 10, "noviembre": 11, "diciembre": 12,
}

// extractName returns the normalized patient name or UnknownPatient
func extractName(text string) string {
	if m := nameLabeled.FindStringSubmatch(text); m != nil {
		var words []string
		for _, w := range strings.Fields(m[1]) {
			if nameStopWords[strings.ToLower(w)] {
				break
			}
			words = append(words, w)
		}
		if len(words) > 0 {
			return model.NormalizePatientName(strings.Join(words, " "))
		}
	}
	if m := nameBare.FindStringSubmatch(text); m != nil {
		return model.NormalizePatientName(m[1])
	}
	return model.UnknownPatient
}

// extractAge prefers an explicit "edad" label over "N años". Durations such
// as "hace 3 años" are not ages.
func extractAge(text string) *int {
	if m := ageLabeled.FindStringSubmatch(text); m != nil {
		if age, ok := parseAge(m[1]); ok {
			return &age
		}
	}

	for _, loc := range ageYears.FindAllStringSubmatchIndex(text, -1) {
		before := strings.ToLower(strings.TrimSpace(text[:loc[0]]))
		if strings.HasSuffix(before, "hace") || strings.HasSuffix(before, "durante") || strings.HasSuffix(before, "por") {
			continue
		}
		if age, ok := parseAge(text[loc[2]:loc[3]]); ok {
			return &age
		}
	}
	return nil
}

func parseAge(s string) (int, bool) {
	age, err := strconv.Atoi(s)
	if err != nil || age < 0 || age > maxAge {
		return 0, false
	}
	return age, true
}

type dateCandidate struct {
	pos  int
	date string
}

// extractDate returns the first valid calendar date in the text, in any
// supported notation, formatted YYYY-MM-DD. Empty if none.
func extractDate(text string) string {
	var candidates []dateCandidate

	for _, loc := range dateISO.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, dateCandidate{
			pos:  loc[0],
			date: formatDate(text[loc[2]:loc[3]], text[loc[4]:loc[5]], text[loc[6]:loc[7]]),
		})
	}
	for _, loc := range dateDMY.FindAllStringSubmatchIndex(text, -1) {
		candidates = append(candidates, dateCandidate{
			pos:  loc[0],
			date: formatDate(text[loc[6]:loc[7]], text[loc[4]:loc[5]], text[loc[2]:loc[3]]),
		})
	}
	for _, loc := range dateLong.FindAllStringSubmatchIndex(text, -1) {
		month := spanishMonths[strings.ToLower(text[loc[4]:loc[5]])]
		candidates = append(candidates, dateCandidate{
			pos:  loc[0],
			date: formatDate(text[loc[6]:loc[7]], strconv.Itoa(month), text[loc[2]:loc[3]]),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].pos < candidates[j].pos })
	for _, c := range candidates {
		if model.IsValidDate(c.date) {
			return c.date
		}
	}
	return ""
}

func formatDate(year, month, day string) string {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// extractSymptoms returns lexicon entries found in the text, in lexicon order
func extractSymptoms(text string, lexicon []string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var found []string
	for _, s := range lexicon {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		if containsWord(lower, s) {
			seen[s] = true
			found = append(found, s)
		}
	}
	return found
}

// containsWord matches term only at word boundaries, so "tos" does not hit "costos"
func containsWord(text, term string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		if isBoundary(text, idx-1) && isBoundary(text, end) {
			return true
		}
		start = idx + 1
	}
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	if c >= 0x80 {
		return false
	}
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}
