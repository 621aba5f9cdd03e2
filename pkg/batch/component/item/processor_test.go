package item_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
)

type player struct {
	No  int
	Age int
}

func TestIsFiltered(t *testing.T) {
	var p *player
	var m map[string]int
	assert.True(t, item.IsFiltered(nil))
	assert.True(t, item.IsFiltered(p))
	assert.True(t, item.IsFiltered(m))
	assert.False(t, item.IsFiltered(&player{}))
	assert.False(t, item.IsFiltered(0))
	assert.False(t, item.IsFiltered(player{}))
}

func TestCompositeItemProcessor_AppliesStagesInOrder(t *testing.T) {
	var order []string
	addOne := item.ProcessorFunc[*player, *player](func(ctx context.Context, p *player) (*player, error) {
		order = append(order, "addOne")
		p.Age++
		return p, nil
	})
	double := item.ProcessorFunc[*player, *player](func(ctx context.Context, p *player) (*player, error) {
		order = append(order, "double")
		p.Age *= 2
		return p, nil
	})
	c := item.NewCompositeItemProcessor[*player](addOne, double)

	out, err := c.Process(context.Background(), &player{No: 1, Age: 30})
	require.NoError(t, err)
	assert.Equal(t, 62, out.Age)
	assert.Equal(t, []string{"addOne", "double"}, order)
}

func TestCompositeItemProcessor_ShortCircuitsOnFilter(t *testing.T) {
	called := false
	adultsOnly := item.FilterFunc[player](func(ctx context.Context, p *player) (bool, error) {
		return p.Age >= 20, nil
	})
	never := item.ProcessorFunc[*player, *player](func(ctx context.Context, p *player) (*player, error) {
		called = true
		return p, nil
	})
	c := item.NewCompositeItemProcessor[*player](adultsOnly, never)

	out, err := c.Process(context.Background(), &player{Age: 12})
	require.NoError(t, err)
	assert.True(t, item.IsFiltered(out))
	assert.False(t, called)

	out, err = c.Process(context.Background(), &player{Age: 42})
	require.NoError(t, err)
	assert.Equal(t, 42, out.Age)
	assert.True(t, called)
}

func TestCompositeItemProcessor_StageErrorStopsPipeline(t *testing.T) {
	boom := errors.New("boom")
	failing := item.ProcessorFunc[*player, *player](func(ctx context.Context, p *player) (*player, error) {
		return nil, boom
	})
	c := item.NewCompositeItemProcessor[*player](item.NewPassThroughItemProcessor[*player](), failing)
	_, err := c.Process(context.Background(), &player{})
	assert.ErrorIs(t, err, boom)

	var _ port.ItemProcessor[*player, *player] = c
}
