package reader

import (
	"context"
	"fmt"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// Paging parameters bound on every named statement fetch.
const (
	ParamPage     = "_page"
	ParamPageSize = "_pagesize"
	ParamSkipRows = "_skiprows"
)

// NamedStatementPagingSource runs a statement from a Registry once per page.
// The statement carries its own paging window, for example
// "LIMIT :_pagesize OFFSET :_skiprows".
type NamedStatementPagingSource[T any] struct {
	name               string
	conn               *sqldb.Connection
	compiled           namedsql.Compiled
	params             map[string]interface{}
	pageSize           int
	alwaysReadFromZero bool
	mapping            *mapping.SchemaMapping
}

// NewNamedStatementPagingSource resolves statementID in registry and compiles it for conn.
func NewNamedStatementPagingSource[T any](conn *sqldb.Connection, registry *statement.Registry, statementID string, params map[string]interface{}, pageSize int, m *mapping.SchemaMapping) (*NamedStatementPagingSource[T], error) {
	const module = "NamedStatementPagingSource"
	if conn == nil || registry == nil {
		return nil, exception.NewConfigurationError(module, "connection and statement registry are required")
	}
	if m == nil {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': schema mapping is required", statementID))
	}
	if pageSize <= 0 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': page size must be positive, got %d", statementID, pageSize))
	}
	query, err := registry.Get(statementID)
	if err != nil {
		return nil, err
	}
	return &NamedStatementPagingSource[T]{
		name:     statementID,
		conn:     conn,
		compiled: namedsql.Compile(query, conn.Style()),
		params:   params,
		pageSize: pageSize,
		mapping:  m,
	}, nil
}

// WithAlwaysReadFromZero binds _skiprows to zero for every page.
func (s *NamedStatementPagingSource[T]) WithAlwaysReadFromZero(v bool) *NamedStatementPagingSource[T] {
	s.alwaysReadFromZero = v
	return s
}

// PageSize implements port.PageSource.
func (s *NamedStatementPagingSource[T]) PageSize() int { return s.pageSize }

// FetchPage implements port.PageSource.
func (s *NamedStatementPagingSource[T]) FetchPage(ctx context.Context, pageNumber int) ([]T, error) {
	const module = "NamedStatementPagingSource"
	if err := validatePage(module, pageNumber, s.pageSize); err != nil {
		return nil, err
	}
	params := make(map[string]interface{}, len(s.params)+3)
	for k, v := range s.params {
		params[k] = v
	}
	params[ParamPage] = pageNumber
	params[ParamPageSize] = s.pageSize
	params[ParamSkipRows] = PageOffset(pageNumber, s.pageSize, s.alwaysReadFromZero)

	args, err := s.compiled.Bind(params)
	if err != nil {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': %v", s.name, err))
	}
	logger.Debugf("NamedStatementPagingSource '%s': fetching page %d.", s.name, pageNumber)

	rows, err := s.conn.DB().QueryContext(ctx, s.compiled.SQL, args...)
	if err != nil {
		return nil, exception.NewDataAccessError(module, fmt.Sprintf("'%s': query for page %d failed", s.name, pageNumber), err)
	}
	defer rows.Close()

	items := make([]T, 0, s.pageSize)
	for rows.Next() {
		row, err := mapping.ScanRow(rows)
		if err != nil {
			return nil, exception.NewDataAccessError(module, fmt.Sprintf("'%s': scan failed", s.name), err)
		}
		var item T
		if err := s.mapping.Decode(row, &item); err != nil {
			return nil, exception.NewValidationError(module, fmt.Sprintf("'%s': row decode failed", s.name), err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewDataAccessError(module, fmt.Sprintf("'%s': iterating page %d failed", s.name, pageNumber), err)
	}
	return items, nil
}

var _ port.PageSource[any] = (*NamedStatementPagingSource[any])(nil)
