// Package store declares the durable-store contract the reporting core
// consumes. Implementations live in internal/data/repos.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ouvidoriag/ogdash2/internal/domain"
)

// ErrUnavailable marks a store that could not answer: unreachable, timed out,
// or otherwise failing at the connection level. It is fatal to the request and
// must never be replaced by an empty result.
var ErrUnavailable = errors.New("storage unavailable")

// Unavailable wraps err so errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

type Op string

const (
	OpEquals     Op = "eq"
	OpContains   Op = "contains"
	OpStartsWith Op = "starts_with"
	// OpMissing admits rows whose column is null or blank. Value is ignored.
	OpMissing Op = "missing"
)

// Predicate is a single condition on a normalized text column. Equality and
// contains compare case-insensitively on the trimmed value. A store may admit
// more rows than the comparison strictly matches, never fewer. When
// IncludeMissing is set the predicate also admits rows whose column is null or
// blank, so a later in-memory pass can consult the payload for them.
type Predicate struct {
	Column         string
	Op             Op
	Value          string
	IncludeMissing bool
}

// Query is a predicate-filtered fetch. Columns projects the result (id is
// always included); empty means every column. Limit is honored only when
// Where is empty.
type Query struct {
	Where   []Predicate
	Columns []string
	Limit   int
}

// GroupRow is one store-side group keyed by the trimmed column value. Key is
// nil for null column values.
type GroupRow struct {
	Key   *string
	Count int64
}

// GroupResult is the outcome of a store-side group-by. Unsupported means the
// store declined the aggregation (unknown column, rejected SQL); callers fall
// back to in-memory grouping. Storage failures are reported as errors instead.
type GroupResult struct {
	Rows        []GroupRow
	Unsupported bool
	Reason      string
}

// RecordStore is the record-side durable store.
type RecordStore interface {
	Find(ctx context.Context, q Query) ([]*domain.Record, error)
	GroupCount(ctx context.Context, column string, where []Predicate) (GroupResult, error)
	Count(ctx context.Context, where []Predicate) (int64, error)
}
