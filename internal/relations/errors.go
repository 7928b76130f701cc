package relations

import "fmt"

// ReferenceNotFoundError reports the first body-supplied ID that does not
// resolve to a stored record. Position is the zero-based index within the
// deduplicated input list. Format is the relation's message template and
// must contain a single %d verb.
type ReferenceNotFoundError struct {
	Format   string
	Position int
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf(e.Format, e.Position)
}
