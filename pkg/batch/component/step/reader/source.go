// Package reader provides PageSource implementations over slices, database/sql,
// GORM and named statements, plus a delimited flat file reader.
package reader

import (
	"context"
	"fmt"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// PageOffset returns the row offset of pageNumber. Sources whose result set
// shrinks while the step updates it set alwaysReadFromZero.
func PageOffset(pageNumber, pageSize int, alwaysReadFromZero bool) int {
	return model.NewPageRequest(pageNumber, pageSize, alwaysReadFromZero).Offset
}

func validatePage(module string, pageNumber, pageSize int) error {
	if pageNumber < 0 {
		return exception.NewValidationError(module, fmt.Sprintf("page number must not be negative, got %d", pageNumber), nil)
	}
	if pageSize <= 0 {
		return exception.NewConfigurationError(module, fmt.Sprintf("page size must be positive, got %d", pageSize))
	}
	return nil
}

// SlicePagingSource serves an in-memory slice page by page. Items are copied
// into a new slice on every fetch.
type SlicePagingSource[T any] struct {
	items    []T
	pageSize int
}

// NewSlicePagingSource creates a source over items.
func NewSlicePagingSource[T any](items []T, pageSize int) (*SlicePagingSource[T], error) {
	if pageSize <= 0 {
		return nil, exception.NewConfigurationError("SlicePagingSource", fmt.Sprintf("page size must be positive, got %d", pageSize))
	}
	return &SlicePagingSource[T]{items: items, pageSize: pageSize}, nil
}

// PageSize implements port.PageSource.
func (s *SlicePagingSource[T]) PageSize() int { return s.pageSize }

// FetchPage implements port.PageSource.
func (s *SlicePagingSource[T]) FetchPage(_ context.Context, pageNumber int) ([]T, error) {
	if err := validatePage("SlicePagingSource", pageNumber, s.pageSize); err != nil {
		return nil, err
	}
	start := PageOffset(pageNumber, s.pageSize, false)
	if start >= len(s.items) {
		return []T{}, nil
	}
	end := start + s.pageSize
	if end > len(s.items) {
		end = len(s.items)
	}
	page := make([]T, end-start)
	copy(page, s.items[start:end])
	return page, nil
}
