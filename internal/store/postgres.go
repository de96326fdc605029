package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"basegraph.app/crmsync/common/id"
	"basegraph.app/crmsync/core/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tables maps local model names to table names. Unlisted models use model + "s".
var Tables = map[string]string{
	ModelUser:                "users",
	ModelOrganization:        "organizations",
	ModelMember:              "members",
	ModelIntegrationEndpoint: "integration_endpoints",
}

// TableFor returns the table backing model.
func TableFor(model string) string {
	if t, ok := Tables[model]; ok {
		return t
	}
	return model + "s"
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore implements Database with dynamic SQL over pgx.
// Identifiers are quoted with pgx.Identifier; values are always bound parameters.
type PostgresStore struct {
	db *db.DB
	q  querier
}

func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database, q: database.Pool()}
}

func (s *PostgresStore) FindOne(ctx context.Context, model string, where ...Where) (Record, error) {
	recs, err := s.find(ctx, model, where, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (s *PostgresStore) FindMany(ctx context.Context, model string, where ...Where) ([]Record, error) {
	return s.find(ctx, model, where, 0)
}

func (s *PostgresStore) find(ctx context.Context, model string, where []Where, limit int) ([]Record, error) {
	clause, args, err := buildWhere(where, 1)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", model, err)
	}
	sql := "SELECT * FROM " + quote(TableFor(model)) + clause + " ORDER BY id"
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.collect(ctx, sql, args)
}

func (s *PostgresStore) Create(ctx context.Context, model string, rec Record) (Record, error) {
	row := rec.Clone()
	if row == nil {
		row = Record{}
	}
	if row.ID() == 0 {
		row["id"] = id.New()
	}

	cols := sortedKeys(row)
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = quote(c)
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		quote(TableFor(model)), strings.Join(names, ", "), strings.Join(params, ", "))
	recs, err := s.collect(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", model, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("create %s: no row returned", model)
	}
	return recs[0], nil
}

func (s *PostgresStore) Update(ctx context.Context, model string, where []Where, patch Record) ([]Record, error) {
	cols := sortedKeys(patch)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		if c == "id" {
			continue
		}
		args = append(args, patch[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", quote(c), len(args)))
	}
	if len(sets) == 0 {
		return s.FindMany(ctx, model, where...)
	}

	clause, whereArgs, err := buildWhere(where, len(args)+1)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", model, err)
	}
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", quote(TableFor(model)), strings.Join(sets, ", "), clause)
	recs, err := s.collect(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", model, err)
	}
	return recs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, model string, where ...Where) error {
	if len(where) == 0 {
		return ErrUnscopedDelete
	}
	clause, args, err := buildWhere(where, 1)
	if err != nil {
		return fmt.Errorf("delete %s: %w", model, err)
	}
	if _, err := s.q.Exec(ctx, "DELETE FROM "+quote(TableFor(model))+clause, args...); err != nil {
		return fmt.Errorf("delete %s: %w", model, translateErr(err))
	}
	return nil
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx DataStore) error) error {
	if _, inTx := s.q.(pgx.Tx); inTx {
		return fn(s)
	}
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&PostgresStore{db: s.db, q: tx})
	})
}

func (s *PostgresStore) collect(ctx context.Context, sql string, args []any) ([]Record, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translateErr(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translateErr(err)
	}
	out := make([]Record, len(maps))
	for i, m := range maps {
		out[i] = Record(m)
	}
	return out, nil
}

// buildWhere renders clauses starting at placeholder $start.
func buildWhere(where []Where, start int) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(where))
	var args []any
	n := start
	for _, w := range where {
		col := quote(w.Field)
		switch w.Operator {
		case OpEq, "":
			if IsNil(w.Value) {
				parts = append(parts, col+" IS NULL")
				continue
			}
			parts = append(parts, fmt.Sprintf("%s = $%d", col, n))
		case OpContains:
			parts = append(parts, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", col, n))
		case OpIn:
			if !isList(w.Value) {
				return "", nil, fmt.Errorf("operator in on %s requires a list, got %T", w.Field, w.Value)
			}
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, n))
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", w.Operator)
		}
		args = append(args, w.Value)
		n++
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrConflict)
	}
	return err
}
