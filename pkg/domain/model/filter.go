package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// FilterField is one of the metadata fields a query can be restricted by
type FilterField string

const (
	FieldPatientName FilterField = "patient_name"
	FieldDate        FilterField = "date"
	FieldAge         FilterField = "age"
)

// Validate checks that the field belongs to the filterable set
func (x FilterField) Validate() error {
	switch x {
	case FieldPatientName, FieldDate, FieldAge:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "unknown filter field", goerr.V("field", string(x)))
	}
}

// Filter is a predicate over chunk metadata. The variants are Equality, Range
// and And; a nil Filter matches everything.
type Filter interface {
	// Match evaluates the predicate. Callers must Validate first.
	Match(md Metadata) bool
	Validate() error

	apply(c *Conditions)
}

// Equality requires the field to equal Value. Value is a string for
// patient_name and date, an int for age.
type Equality struct {
	Field FilterField
	Value any
}

// Range requires the field to lie within [Min, Max]; a nil bound is open.
// Bounds are strings for date and ints for age. patient_name has no range.
type Range struct {
	Field FilterField
	Min   any
	Max   any
}

// And requires every child filter to match. An empty And matches everything.
type And struct {
	Filters []Filter
}

func (x *Equality) Validate() error {
	if err := x.Field.Validate(); err != nil {
		return err
	}
	switch x.Field {
	case FieldPatientName:
		s, ok := x.Value.(string)
		if !ok || s == "" {
			return goerr.Wrap(ErrValidation, "patient_name must be a non-empty string", goerr.V("value", x.Value))
		}
	case FieldDate:
		if _, err := dateBound(x.Value); err != nil {
			return err
		}
	case FieldAge:
		if _, err := ageBound(x.Value); err != nil {
			return err
		}
	}
	return nil
}

func (x *Equality) Match(md Metadata) bool {
	switch x.Field {
	case FieldPatientName:
		s, _ := x.Value.(string)
		return md.PatientName == NormalizePatientName(s)
	case FieldDate:
		s, _ := x.Value.(string)
		return md.Date == s
	case FieldAge:
		v, _ := x.Value.(int)
		return md.Age != nil && *md.Age == v
	}
	return false
}

func (x *Equality) apply(c *Conditions) {
	switch x.Field {
	case FieldPatientName:
		s, _ := x.Value.(string)
		name := NormalizePatientName(s)
		if c.PatientName != nil && *c.PatientName != name {
			c.Impossible = true
		}
		c.PatientName = &name
	case FieldDate:
		s, _ := x.Value.(string)
		c.narrowDate(s, s)
	case FieldAge:
		v, _ := x.Value.(int)
		c.narrowAge(&v, &v)
	}
}

func (x *Range) Validate() error {
	if err := x.Field.Validate(); err != nil {
		return err
	}
	if x.Min == nil && x.Max == nil {
		return goerr.Wrap(ErrValidation, "range filter needs at least one bound", goerr.V("field", string(x.Field)))
	}

	switch x.Field {
	case FieldPatientName:
		return goerr.Wrap(ErrValidation, "patient_name does not support range operators")
	case FieldDate:
		for _, b := range []any{x.Min, x.Max} {
			if b == nil {
				continue
			}
			if _, err := dateBound(b); err != nil {
				return err
			}
		}
	case FieldAge:
		for _, b := range []any{x.Min, x.Max} {
			if b == nil {
				continue
			}
			if _, err := ageBound(b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *Range) Match(md Metadata) bool {
	switch x.Field {
	case FieldDate:
		if s, ok := x.Min.(string); ok && md.Date < s {
			return false
		}
		if s, ok := x.Max.(string); ok && md.Date > s {
			return false
		}
		return true
	case FieldAge:
		if md.Age == nil {
			return false
		}
		if v, ok := x.Min.(int); ok && *md.Age < v {
			return false
		}
		if v, ok := x.Max.(int); ok && *md.Age > v {
			return false
		}
		return true
	}
	return false
}

func (x *Range) apply(c *Conditions) {
	switch x.Field {
	case FieldDate:
		from, _ := x.Min.(string)
		to, _ := x.Max.(string)
		c.narrowDate(from, to)
	case FieldAge:
		var lo, hi *int
		if v, ok := x.Min.(int); ok {
			lo = &v
		}
		if v, ok := x.Max.(int); ok {
			hi = &v
		}
		c.narrowAge(lo, hi)
	}
}

func (x *And) Validate() error {
	for _, f := range x.Filters {
		if f == nil {
			return goerr.Wrap(ErrValidation, "nil filter in conjunction")
		}
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (x *And) Match(md Metadata) bool {
	for _, f := range x.Filters {
		if !f.Match(md) {
			return false
		}
	}
	return true
}

func (x *And) apply(c *Conditions) {
	for _, f := range x.Filters {
		f.apply(c)
	}
}

// MatchFilter evaluates f against md, treating a nil filter as match-all
func MatchFilter(f Filter, md Metadata) bool {
	if f == nil {
		return true
	}
	return f.Match(md)
}

func dateBound(v any) (string, error) {
	s, ok := v.(string)
	if !ok || !IsValidDate(s) {
		return "", goerr.Wrap(ErrValidation, "date filter value must be YYYY-MM-DD", goerr.V("value", v))
	}
	return s, nil
}

func ageBound(v any) (int, error) {
	n, ok := v.(int)
	if !ok {
		return 0, goerr.Wrap(ErrValidation, "age filter value must be an integer", goerr.V("value", v))
	}
	if n < 0 {
		return 0, goerr.Wrap(ErrValidation, "age filter value must not be negative", goerr.V("value", n))
	}
	return n, nil
}
