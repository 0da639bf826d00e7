package logentries

import (
	"context"
	"testing"

	"github.com/logview/backend/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanner_NonPositiveCount(t *testing.T) {
	store, keys := seedMemStore(t, 5)
	p := NewPlanner(store, zerolog.Nop())

	for _, n := range []int{0, -1, -100} {
		for _, dir := range []models.Direction{models.Forward, models.Backward} {
			docs, err := p.FetchAdjacent(context.Background(), models.AdjacentQuery{Anchor: keys[2], Direction: dir, MaxCount: n})
			require.NoError(t, err)
			assert.NotNil(t, docs)
			assert.Empty(t, docs)
		}
	}
	assert.Equal(t, 0, store.Calls("FetchAdjacent"))
}

func TestPlanner_StoreOrder(t *testing.T) {
	store, keys := seedMemStore(t, 5)
	p := NewPlanner(store, zerolog.Nop())

	docs, err := p.FetchAdjacent(context.Background(), models.AdjacentQuery{Anchor: keys[3], Direction: models.Backward, MaxCount: 2})
	require.NoError(t, err)
	assert.Equal(t, keys[2], docs[0].Key)
	assert.Equal(t, keys[1], docs[1].Key)

	reverseDocuments(docs)
	assert.Equal(t, keys[1], docs[0].Key)
}

func TestCursorAnchor(t *testing.T) {
	w := models.Window{Start: 100, End: 200}
	key := models.TimeKey{Time: 150, Tiebreaker: 4}

	anchor, dir := cursorAnchor(models.CursorAfter(key), w)
	assert.Equal(t, key, anchor)
	assert.Equal(t, models.Forward, dir)

	anchor, dir = cursorAnchor(models.CursorBefore(key), w)
	assert.Equal(t, key, anchor)
	assert.Equal(t, models.Backward, dir)

	anchor, _ = cursorAnchor(models.CursorFirst(), w)
	assert.True(t, anchor.Less(models.TimeKey{Time: 100}))
	assert.False(t, anchor.Less(models.TimeKey{Time: 99, Tiebreaker: 1 << 62}))

	anchor, dir = cursorAnchor(models.CursorLast(), w)
	assert.Equal(t, models.Backward, dir)
	assert.True(t, models.TimeKey{Time: 200, Tiebreaker: 1 << 62}.Less(anchor))
}
