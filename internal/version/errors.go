package version

import "fmt"

// ParseError describes why a token is not a recognised version.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable version %q: %s", e.Token, e.Reason)
}
