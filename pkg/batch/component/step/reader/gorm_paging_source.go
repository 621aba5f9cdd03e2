package reader

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// GormQueryFunc scopes a fresh GORM session to the rows to read, typically
// with Table/Where/Order. Offset and Limit are applied by the source.
type GormQueryFunc func(db *gorm.DB) *gorm.DB

// GormPagingSource pages through a GORM query. Every fetch starts from a new
// session so no statement state leaks between pages, and returned items are
// independent of the session that loaded them.
type GormPagingSource[T any] struct {
	name               string
	db                 *gorm.DB
	query              GormQueryFunc
	pageSize           int
	alwaysReadFromZero bool
	mapping            *mapping.SchemaMapping
}

// PageSize implements port.PageSource.
func (s *GormPagingSource[T]) PageSize() int { return s.pageSize }

// Name returns the source name.
func (s *GormPagingSource[T]) Name() string { return s.name }

// FetchPage implements port.PageSource.
func (s *GormPagingSource[T]) FetchPage(ctx context.Context, pageNumber int) ([]T, error) {
	if err := validatePage("GormPagingSource", pageNumber, s.pageSize); err != nil {
		return nil, err
	}
	offset := PageOffset(pageNumber, s.pageSize, s.alwaysReadFromZero)
	session := s.db.Session(&gorm.Session{NewDB: true}).WithContext(ctx)
	if s.mapping != nil {
		session = session.Table(s.mapping.Table)
	}
	q := s.query(session).Offset(offset).Limit(s.pageSize)
	logger.Debugf("GormPagingSource '%s': fetching page %d (offset %d).", s.name, pageNumber, offset)

	if s.mapping == nil {
		items := make([]T, 0, s.pageSize)
		if err := q.Find(&items).Error; err != nil {
			return nil, exception.NewDataAccessError("GormPagingSource", fmt.Sprintf("'%s': query for page %d failed", s.name, pageNumber), err)
		}
		return items, nil
	}

	var rows []map[string]interface{}
	if err := q.Find(&rows).Error; err != nil {
		return nil, exception.NewDataAccessError("GormPagingSource", fmt.Sprintf("'%s': query for page %d failed", s.name, pageNumber), err)
	}
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := s.mapping.Decode(row, &item); err != nil {
			return nil, exception.NewValidationError("GormPagingSource", fmt.Sprintf("'%s': row decode failed", s.name), err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GormPagingSourceBuilder assembles a GormPagingSource.
type GormPagingSourceBuilder[T any] struct {
	src GormPagingSource[T]
}

// NewGormPagingSourceBuilder returns a builder with page size 10 and the name "gormPagingSource".
func NewGormPagingSourceBuilder[T any]() *GormPagingSourceBuilder[T] {
	return &GormPagingSourceBuilder[T]{src: GormPagingSource[T]{name: "gormPagingSource", pageSize: 10}}
}

// Name sets the source name.
func (b *GormPagingSourceBuilder[T]) Name(name string) *GormPagingSourceBuilder[T] {
	b.src.name = name
	return b
}

// DB sets the GORM handle.
func (b *GormPagingSourceBuilder[T]) DB(db *gorm.DB) *GormPagingSourceBuilder[T] {
	b.src.db = db
	return b
}

// Query sets the query function.
func (b *GormPagingSourceBuilder[T]) Query(fn GormQueryFunc) *GormPagingSourceBuilder[T] {
	b.src.query = fn
	return b
}

// PageSize sets the page size.
func (b *GormPagingSourceBuilder[T]) PageSize(size int) *GormPagingSourceBuilder[T] {
	b.src.pageSize = size
	return b
}

// AlwaysReadFromZero keeps the offset at zero for every page.
func (b *GormPagingSourceBuilder[T]) AlwaysReadFromZero(v bool) *GormPagingSourceBuilder[T] {
	b.src.alwaysReadFromZero = v
	return b
}

// Mapping decodes rows through m instead of GORM's struct scanning.
func (b *GormPagingSourceBuilder[T]) Mapping(m *mapping.SchemaMapping) *GormPagingSourceBuilder[T] {
	b.src.mapping = m
	return b
}

// Build validates the configuration and returns the source.
func (b *GormPagingSourceBuilder[T]) Build() (*GormPagingSource[T], error) {
	const module = "GormPagingSourceBuilder"
	if b.src.db == nil {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': db is required", b.src.name))
	}
	if b.src.query == nil {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': query function is required", b.src.name))
	}
	if b.src.pageSize <= 0 {
		return nil, exception.NewConfigurationError(module, fmt.Sprintf("'%s': page size must be positive, got %d", b.src.name, b.src.pageSize))
	}
	src := b.src
	return &src, nil
}

var _ port.PageSource[any] = (*GormPagingSource[any])(nil)
