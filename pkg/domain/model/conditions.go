package model

// Conditions is a Filter flattened into per-field bounds, the shape storage
// backends push down into their queries. Any valid Filter flattens to
// Conditions that accept exactly the same metadata.
type Conditions struct {
	PatientName *string
	DateFrom    string // inclusive, empty when open
	DateTo      string // inclusive, empty when open
	AgeMin      *int
	AgeMax      *int
	RequireAge  bool

	// Impossible is set when the bounds contradict each other, e.g. two
	// different patient names. Nothing can match.
	Impossible bool
}

// Flatten converts a validated filter into Conditions. A nil filter yields
// empty Conditions.
func Flatten(f Filter) Conditions {
	var c Conditions
	if f != nil {
		f.apply(&c)
	}
	return c
}

// IsEmpty reports whether no restriction applies
func (c Conditions) IsEmpty() bool {
	return c.PatientName == nil && c.DateFrom == "" && c.DateTo == "" && !c.RequireAge && !c.Impossible
}

// Match evaluates the flattened bounds against md
func (c Conditions) Match(md Metadata) bool {
	if c.Impossible {
		return false
	}
	if c.PatientName != nil && md.PatientName != *c.PatientName {
		return false
	}
	if c.DateFrom != "" && md.Date < c.DateFrom {
		return false
	}
	if c.DateTo != "" && md.Date > c.DateTo {
		return false
	}
	if c.RequireAge {
		if md.Age == nil {
			return false
		}
		if c.AgeMin != nil && *md.Age < *c.AgeMin {
			return false
		}
		if c.AgeMax != nil && *md.Age > *c.AgeMax {
			return false
		}
	}
	return true
}

func (c *Conditions) narrowDate(from, to string) {
	if from != "" && (c.DateFrom == "" || from > c.DateFrom) {
		c.DateFrom = from
	}
	if to != "" && (c.DateTo == "" || to < c.DateTo) {
		c.DateTo = to
	}
	if c.DateFrom != "" && c.DateTo != "" && c.DateFrom > c.DateTo {
		c.Impossible = true
	}
}

func (c *Conditions) narrowAge(lo, hi *int) {
	c.RequireAge = true
	if lo != nil && (c.AgeMin == nil || *lo > *c.AgeMin) {
		v := *lo
		c.AgeMin = &v
	}
	if hi != nil && (c.AgeMax == nil || *hi < *c.AgeMax) {
		v := *hi
		c.AgeMax = &v
	}
	if c.AgeMin != nil && c.AgeMax != nil && *c.AgeMin > *c.AgeMax {
		c.Impossible = true
	}
}
