package reader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// SortKey is one ORDER BY term of a paging query.
type SortKey struct {
	Column     string
	Descending bool
}

// RowMapper maps the current row of rows to an item.
type RowMapper[T any] func(rows *sql.Rows) (T, error)

// SQLPagingSourceConfig configures a SQLPagingSource.
type SQLPagingSourceConfig[T any] struct {
	Name         string
	SelectClause string
	FromClause   string
	// WhereClause may reference Parameters as :name.
	WhereClause string
	// SortKeys must give a total order, usually the primary key.
	SortKeys   []SortKey
	Parameters map[string]interface{}
	PageSize   int
	// AlwaysReadFromZero keeps the offset at zero for every page.
	AlwaysReadFromZero bool
	// RowMapper takes precedence over Mapping.
	RowMapper RowMapper[T]
	Mapping   *mapping.SchemaMapping
}

// SQLPagingSource pages through a query on a database/sql connection using
// LIMIT and OFFSET. Each FetchPage issues exactly one query.
type SQLPagingSource[T any] struct {
	cfg  SQLPagingSourceConfig[T]
	db   *sql.DB
	base namedsql.Compiled
	args []interface{}
}

// NewSQLPagingSource validates cfg and compiles the query for the dialect of conn.
func NewSQLPagingSource[T any](conn *sqldb.Connection, cfg SQLPagingSourceConfig[T]) (*SQLPagingSource[T], error) {
	const module = "SQLPagingSource"
	if conn == nil || conn.DB() == nil {
		return nil, exception.NewConfigurationError(module, "connection is required")
	}
	if cfg.Name == "" {
		cfg.Name = "sqlPagingSource"
	}
	if cfg.PageSize <= 0 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': page size must be positive, got %d", cfg.Name, cfg.PageSize))
	}
	if cfg.FromClause == "" {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': from clause is required", cfg.Name))
	}
	if len(cfg.SortKeys) == 0 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': at least one sort key is required", cfg.Name))
	}
	if cfg.RowMapper == nil && cfg.Mapping == nil {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': a row mapper or schema mapping is required", cfg.Name))
	}
	if cfg.SelectClause == "" {
		if cfg.Mapping == nil {
			return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': select clause is required", cfg.Name))
		}
		cfg.SelectClause = cfg.Mapping.SelectList()
	}

	compiled := namedsql.Compile(buildPagingQuery(cfg), conn.Style())
	args, err := compiled.Bind(cfg.Parameters)
	if err != nil {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': %v", cfg.Name, err))
	}
	return &SQLPagingSource[T]{cfg: cfg, db: conn.DB(), base: compiled, args: args}, nil
}

func buildPagingQuery[T any](cfg SQLPagingSourceConfig[T]) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(cfg.SelectClause)
	b.WriteString(" FROM ")
	b.WriteString(cfg.FromClause)
	if cfg.WhereClause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(cfg.WhereClause)
	}
	b.WriteString(" ORDER BY ")
	for i, k := range cfg.SortKeys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.Column)
		if k.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	return b.String()
}

// Query returns the compiled query without the paging window.
func (s *SQLPagingSource[T]) Query() string { return s.base.SQL }

// PageSize implements port.PageSource.
func (s *SQLPagingSource[T]) PageSize() int { return s.cfg.PageSize }

// FetchPage implements port.PageSource.
func (s *SQLPagingSource[T]) FetchPage(ctx context.Context, pageNumber int) ([]T, error) {
	if err := validatePage("SQLPagingSource", pageNumber, s.cfg.PageSize); err != nil {
		return nil, err
	}
	offset := PageOffset(pageNumber, s.cfg.PageSize, s.cfg.AlwaysReadFromZero)
	query := fmt.Sprintf("%s LIMIT %d OFFSET %d", s.base.SQL, s.cfg.PageSize, offset)
	logger.Debugf("SQLPagingSource '%s': fetching page %d (offset %d).", s.cfg.Name, pageNumber, offset)

	rows, err := s.db.QueryContext(ctx, query, s.args...)
	if err != nil {
		return nil, exception.NewDataAccessError("SQLPagingSource", fmt.Sprintf("'%s': query for page %d failed", s.cfg.Name, pageNumber), err)
	}
	defer rows.Close()

	items := make([]T, 0, s.cfg.PageSize)
	for rows.Next() {
		item, err := s.mapRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewDataAccessError("SQLPagingSource", fmt.Sprintf("'%s': iterating page %d failed", s.cfg.Name, pageNumber), err)
	}
	return items, nil
}

func (s *SQLPagingSource[T]) mapRow(rows *sql.Rows) (T, error) {
	var item T
	if s.cfg.RowMapper != nil {
		v, err := s.cfg.RowMapper(rows)
		if err != nil {
			return item, exception.NewDataAccessError("SQLPagingSource", fmt.Sprintf("'%s': row mapping failed", s.cfg.Name), err)
		}
		return v, nil
	}
	row, err := mapping.ScanRow(rows)
	if err != nil {
		return item, exception.NewDataAccessError("SQLPagingSource", fmt.Sprintf("'%s': scan failed", s.cfg.Name), err)
	}
	if err := s.cfg.Mapping.Decode(row, &item); err != nil {
		return item, exception.NewValidationError("SQLPagingSource", fmt.Sprintf("'%s': row decode failed", s.cfg.Name), err)
	}
	return item, nil
}

var _ port.PageSource[any] = (*SQLPagingSource[any])(nil)
