package records

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
	"github.com/ouvidoriag/ogdash2/internal/reporting/store"
)

// RecordRepo is the gorm-backed record store. It only ever reads.
type RecordRepo interface {
	store.RecordStore
}

type recordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecordRepo(db *gorm.DB, baseLog *logger.Logger) RecordRepo {
	return &recordRepo{
		db:  db,
		log: baseLog.With("repo", "RecordRepo"),
	}
}

func (r *recordRepo) Find(ctx context.Context, q store.Query) ([]*domain.Record, error) {
	tx, err := r.where(r.db.WithContext(ctx).Model(&domain.Record{}), q.Where)
	if err != nil {
		return nil, err
	}
	if len(q.Columns) > 0 {
		cols := []string{domain.ColumnID}
		for _, c := range q.Columns {
			if c == domain.ColumnID {
				continue
			}
			if !domain.IsTextColumn(c) && c != domain.ColumnPayload && c != domain.ColumnResolutionDays {
				return nil, fmt.Errorf("cannot project column %q", c)
			}
			cols = append(cols, c)
		}
		tx = tx.Select(cols)
	}
	if len(q.Where) == 0 && q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []*domain.Record
	if err := tx.Order(domain.ColumnID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type groupRow struct {
	GroupKey   *string `gorm:"column:group_key"`
	GroupCount int64   `gorm:"column:group_count"`
}

// GroupCount groups by one trimmed text column. A statement the database rejects is
// reported as Unsupported so the caller can group in memory; connection-level
// failures are returned as errors.
func (r *recordRepo) GroupCount(ctx context.Context, column string, where []store.Predicate) (store.GroupResult, error) {
	if !domain.IsTextColumn(column) {
		return store.GroupResult{Unsupported: true, Reason: fmt.Sprintf("column %q is not groupable", column)}, nil
	}
	tx, err := r.where(r.db.WithContext(ctx).Model(&domain.Record{}), where)
	if err != nil {
		return store.GroupResult{Unsupported: true, Reason: err.Error()}, nil
	}
	var rows []groupRow
	err = tx.
		Select(fmt.Sprintf("TRIM(%s, ?) AS group_key, COUNT(*) AS group_count", column), trimSet).
		Group("group_key").
		Scan(&rows).Error
	if err != nil {
		if IsUnavailable(err) {
			return store.GroupResult{}, err
		}
		r.log.Warn("group count rejected", "column", column, "error", err)
		return store.GroupResult{Unsupported: true, Reason: err.Error()}, nil
	}
	out := store.GroupResult{Rows: make([]store.GroupRow, 0, len(rows))}
	for _, row := range rows {
		out.Rows = append(out.Rows, store.GroupRow{Key: row.GroupKey, Count: row.GroupCount})
	}
	return out, nil
}

func (r *recordRepo) Count(ctx context.Context, where []store.Predicate) (int64, error) {
	tx, err := r.where(r.db.WithContext(ctx).Model(&domain.Record{}), where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// where appends one condition per predicate. Column names are checked against
// the normalized column list before they reach SQL.
//
// Conditions never drop a row the in-memory comparison would keep. SQL LOWER
// folds ASCII only on SQLite, so every rune whose folding the database may not
// apply becomes a single-character wildcard, and trimming covers the same
// whitespace set strings.TrimSpace does.
func (r *recordRepo) where(tx *gorm.DB, preds []store.Predicate) (*gorm.DB, error) {
	for _, p := range preds {
		if !domain.IsTextColumn(p.Column) {
			return nil, fmt.Errorf("cannot filter on column %q", p.Column)
		}
		missing := fmt.Sprintf("(%s IS NULL OR TRIM(%s, ?) = '')", p.Column, p.Column)
		if p.Op == store.OpMissing {
			tx = tx.Where(missing, trimSet)
			continue
		}
		pattern := foldPattern(strings.TrimSpace(p.Value))
		switch p.Op {
		case store.OpEquals:
		case store.OpContains:
			pattern = "%" + pattern + "%"
		case store.OpStartsWith:
			pattern += "%"
		default:
			return nil, fmt.Errorf("unsupported predicate op %q", p.Op)
		}
		cond := fmt.Sprintf(`LOWER(TRIM(%s, ?)) LIKE ? ESCAPE '\'`, p.Column)
		if p.IncludeMissing {
			tx = tx.Where(fmt.Sprintf("(%s OR %s)", cond, missing), trimSet, pattern, trimSet)
			continue
		}
		tx = tx.Where(cond, trimSet, pattern)
	}
	return tx, nil
}

// trimSet lists every rune unicode.IsSpace accepts. Both SQLite trim(X, Y)
// and Postgres trim(string, characters) take it as a character set.
var trimSet = func() string {
	var b strings.Builder
	for _, rng := range unicode.White_Space.R16 {
		for c := rune(rng.Lo); c <= rune(rng.Hi); c += rune(rng.Stride) {
			if unicode.IsSpace(c) {
				b.WriteRune(c)
			}
		}
	}
	return b.String()
}()

// foldPattern builds a LIKE pattern matching at least every value equal to v
// under Unicode case folding. ASCII is lowered and escaped; any other rune, and
// the ASCII letters that share a fold orbit with one (k with the Kelvin sign,
// s with the long s), becomes "_".
func foldPattern(v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case r >= utf8.RuneSelf:
			b.WriteByte('_')
		case r == 'k' || r == 'K' || r == 's' || r == 'S':
			b.WriteByte('_')
		case r == '\\' || r == '%' || r == '_':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
