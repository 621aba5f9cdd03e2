package reader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

type customer struct {
	ID   int
	Name string
	Age  int
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, reader.PageOffset(0, 10, false))
	assert.Equal(t, 30, reader.PageOffset(3, 10, false))
	assert.Equal(t, 0, reader.PageOffset(3, 10, true))
}

func TestSlicePagingSource(t *testing.T) {
	src, err := reader.NewSlicePagingSource([]int{1, 2, 3, 4, 5}, 2)
	require.NoError(t, err)
	ctx := context.Background()

	p0, err := src.FetchPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, p0)
	p2, err := src.FetchPage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, p2)
	p3, err := src.FetchPage(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, p3)

	p0[0] = 99
	again, err := src.FetchPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0])

	_, err = src.FetchPage(ctx, -1)
	assert.True(t, exception.IsKind(err, exception.KindValidation))
}

func TestSlicePagingSource_RejectsBadPageSize(t *testing.T) {
	_, err := reader.NewSlicePagingSource([]int{1}, 0)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
