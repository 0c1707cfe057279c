// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sanitize implements the validation-plus-escaping discipline used
anywhere an identifier must be interpolated into SQL text (DDL statements,
savepoint names).

Parameter values never go through this package — they are always bound
positionally ($1, $2, …) on the wire. Identifiers cannot be bound, so they
pass through [Identifier] instead.

Validation catches malice and mistakes with clear errors; the quote-doubling
step is defense in depth for the rare legitimate edge cases. There is no
keyword rejection: PostgreSQL happily accepts quoted reserved words.
*/
package sanitize

import (
	"regexp"
	"strings"

	"github.com/taibuivan/pggate/internal/platform/apperr"
	"github.com/taibuivan/pggate/internal/platform/constants"
)

// identifierPattern is the allowed alphabet: letters, digits, underscore,
// not starting with a digit. Dots are deliberately excluded — callers needing
// a schema prefix must sanitize each part and join them themselves.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Identifier validates name and returns it as a double-quoted PostgreSQL
// identifier safe for interpolation. It fails with INVALID_IDENTIFIER when
// the name exceeds PostgreSQL's 63-byte limit or falls outside the allowed
// alphabet.
func Identifier(name string) (string, error) {
	if name == "" {
		return "", apperr.InvalidIdentifier(name, "must not be empty")
	}
	if len(name) > constants.MaxIdentifierBytes {
		return "", apperr.InvalidIdentifier(name, "exceeds the 63-byte PostgreSQL identifier limit")
	}
	if !identifierPattern.MatchString(name) {
		return "", apperr.InvalidIdentifier(name, "must contain only letters, digits, and underscores, and must not start with a digit")
	}

	// The pattern above already rejects embedded quotes; doubling them anyway
	// keeps the escaping correct even if the alphabet is ever widened.
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return `"` + escaped + `"`, nil
}

// Qualified sanitizes an optional schema and a name and joins them with a
// dot. An empty schema yields just the quoted name (the search_path applies).
func Qualified(schema, name string) (string, error) {
	quotedName, err := Identifier(name)
	if err != nil {
		return "", err
	}
	if schema == "" {
		return quotedName, nil
	}

	quotedSchema, err := Identifier(schema)
	if err != nil {
		return "", err
	}
	return quotedSchema + "." + quotedName, nil
}
