package dao

// Parameter is an equality filter on a named entity field; it matches when
// the field equals any of Values.
type Parameter struct {
	Name   string
	Values []string
}

// Accepts reports whether value satisfies the parameter. An empty value set
// accepts anything.
func (p *Parameter) Accepts(value string) bool {
	if len(p.Values) == 0 {
		return true
	}
	for _, candidate := range p.Values {
		if candidate == value {
			return true
		}
	}
	return false
}

// NewParameter creates a filter on name matching any of values.
func NewParameter(name string, values ...string) *Parameter {
	return &Parameter{Name: name, Values: values}
}
