package model

import (
	"strings"
	"time"
	"unicode"
)

// UnknownPatient is the patient name stored when none could be extracted
const UnknownPatient = "desconocido"

// DateLayout is the calendar date format used for Metadata.Date and date filters
const DateLayout = "2006-01-02"

// Metadata is the structured information extracted from a source text.
// Every chunk of a source carries an identical copy.
type Metadata struct {
	PatientName string
	Date        string // YYYY-MM-DD; the ingestion date when none was found
	Age         *int   // nil when unknown, never zero as a placeholder
	Symptoms    []string
}

// Clone returns a deep copy of m
func (m Metadata) Clone() Metadata {
	copied := m
	if m.Age != nil {
		age := *m.Age
		copied.Age = &age
	}
	if m.Symptoms != nil {
		copied.Symptoms = append([]string{}, m.Symptoms...)
	}
	return copied
}

// Equal reports whether two metadata snapshots are identical
func (m Metadata) Equal(other Metadata) bool {
	if m.PatientName != other.PatientName || m.Date != other.Date {
		return false
	}
	if (m.Age == nil) != (other.Age == nil) {
		return false
	}
	if m.Age != nil && *m.Age != *other.Age {
		return false
	}
	if len(m.Symptoms) != len(other.Symptoms) {
		return false
	}
	for i := range m.Symptoms {
		if m.Symptoms[i] != other.Symptoms[i] {
			return false
		}
	}
	return true
}

// IngestionDate formats t as the default Metadata.Date
func IngestionDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// IsValidDate reports whether s is a real calendar date in YYYY-MM-DD form
func IsValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// NormalizePatientName collapses whitespace and capitalizes every word, so
// that "juan  PÉREZ" and "Juan Pérez" compare equal. Empty input yields
// UnknownPatient.
func NormalizePatientName(name string) string {
	words := strings.Fields(name)
	if len(words) == 0 {
		return UnknownPatient
	}
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	normalized := strings.Join(words, " ")
	if strings.EqualFold(normalized, UnknownPatient) {
		return UnknownPatient
	}
	return normalized
}
