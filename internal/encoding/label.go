package encoding

import "fmt"

// UnknownClassError is returned for a class index the label encoder does not have.
type UnknownClassError struct {
	Index   int
	Classes int
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("class index %d out of range for %d classes", e.Index, e.Classes)
}

// LabelEncoder maps the classifier's class index back to the price range it
// was fitted on.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

func (l *LabelEncoder) NumClasses() int {
	return len(l.Classes)
}

// Decode returns the label for a class index.
func (l *LabelEncoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(l.Classes) {
		return "", &UnknownClassError{Index: index, Classes: len(l.Classes)}
	}
	return l.Classes[index], nil
}
