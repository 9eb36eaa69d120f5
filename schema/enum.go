package schema

// Enum is a named, closed set of string choices a field's value must be
// one of.
type Enum struct {
	Name    string
	Choices []string
}

// Valid reports whether choice is one of the enum's declared Choices.
func (e *Enum) Valid(choice string) bool {
	for _, c := range e.Choices {
		if c == choice {
			return true
		}
	}
	return false
}
