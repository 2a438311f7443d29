// Package query recognizes the single read statement the inspector serves.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/storelens/pkg/objectstore"
)

// ErrUnsupported is returned by Resolve for any statement other than a full
// table select.
var ErrUnsupported = errors.New("unsupported query")

var selectPattern = regexp.MustCompile(`^SELECT[ \t]+rowid,[ \t]+\*[ \t]+FROM "([^"]+)"$`)

// Select is a recognized full-table select.
type Select struct {
	Table string
}

// Parse matches text against the supported shape,
// SELECT rowid, * FROM "<table>", ignoring surrounding whitespace.
func Parse(text string) (Select, bool) {
	m := selectPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Select{}, false
	}
	return Select{Table: m[1]}, true
}

// Resolve parses text and looks up its table in the session. Unrecognized
// statements yield ErrUnsupported; a missing table is reported by the session.
func Resolve(ctx context.Context, s objectstore.Session, text string) (objectstore.Table, error) {
	sel, ok := Parse(text)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, strings.TrimSpace(text))
	}
	return s.Table(ctx, sel.Table)
}
