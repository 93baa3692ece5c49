package abp

import "strings"

// Route resolves the record kind of one raw CSV line. The discriminator is
// always the first field; it is matched against the catalog after trimming
// surrounding whitespace.
//
// Errors are row-level by contract: ErrMalformedLine for an empty line or a
// blank discriminator, *UnknownKindError for a code the catalog does not
// know. Callers skip the line, count it and continue.
func (c *Catalog) Route(fields []string) (*Kind, error) {
	if len(fields) == 0 {
		return nil, ErrMalformedLine
	}
	code := strings.TrimSpace(fields[0])
	if code == "" {
		return nil, ErrMalformedLine
	}
	return c.Lookup(code)
}
