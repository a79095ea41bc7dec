package handle

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultCanonicalPrefix is the global handle resolver.
const DefaultCanonicalPrefix = "http://hdl.handle.net/"

// Parser recognizes the ways a handle may be written and reduces them to
// the bare prefix/suffix form.
type Parser struct {
	// Prefix is the naming authority local handles are minted under.
	Prefix string
	// CanonicalPrefix is prepended to a handle to form the value stored in
	// object metadata. It may be empty.
	CanonicalPrefix string
	// Additional lists other naming authorities this site answers for.
	Additional []string
}

var schemes = []string{
	"hdl:",
	"info:hdl/",
	"http://hdl.handle.net/",
	"https://hdl.handle.net/",
}

// Parse returns the bare handle named by identifier, or ErrMalformed if the
// identifier is not a handle this site knows about.
func (p Parser) Parse(identifier string) (string, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return "", errors.Wrap(ErrMalformed, "empty identifier")
	}
	if p.local(id) {
		return id, nil
	}
	if p.CanonicalPrefix != "" && strings.HasPrefix(id, p.CanonicalPrefix) {
		return p.bare(identifier, strings.TrimPrefix(id, p.CanonicalPrefix))
	}
	for _, s := range schemes {
		if strings.HasPrefix(id, s) {
			return p.bare(identifier, strings.TrimPrefix(id, s))
		}
	}
	return "", errors.Wrap(ErrMalformed, identifier)
}

// local reports whether id starts with one of our naming authorities.
func (p Parser) local(id string) bool {
	if p.Prefix != "" && strings.HasPrefix(id, p.Prefix+"/") {
		_, err := Parse(id)
		return err == nil
	}
	for _, a := range p.Additional {
		if strings.HasPrefix(id, a+"/") {
			_, err := Parse(id)
			return err == nil
		}
	}
	return false
}

// bare checks that what remains after a scheme is a handle.
func (p Parser) bare(identifier, rest string) (string, error) {
	if _, err := Parse(rest); err != nil {
		return "", errors.Wrap(ErrMalformed, identifier)
	}
	return rest, nil
}

// Supports reports whether identifier parses as a handle.
func (p Parser) Supports(identifier string) bool {
	_, err := p.Parse(identifier)
	return err == nil
}

// CanonicalForm returns the value to record in metadata for handle h.
func (p Parser) CanonicalForm(h string) string {
	if h == "" {
		return ""
	}
	return p.CanonicalPrefix + h
}
