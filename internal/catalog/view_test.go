package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/gateway"
)

func setupView(t *testing.T, books map[string]Book) (*View, *gateway.Memory) {
	t.Helper()
	gw := gateway.NewMemory()
	t.Cleanup(func() { gw.Close() })

	ctx := context.Background()
	for id, b := range books {
		require.NoError(t, gw.Write(ctx, BooksPath+"/"+id, b))
	}

	v, err := NewView(ctx, gw, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v, gw
}

func TestViewLoadsInitialCatalog(t *testing.T) {
	v, _ := setupView(t, map[string]Book{
		"b1": {Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction"},
		"b2": {Title: "Emma", Author: "Jane Austen", Category: "Romance"},
	})

	books := v.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "b1", books[0].ID)
	assert.Equal(t, "b2", books[1].ID)

	got, ok := v.Get("b2")
	require.True(t, ok)
	assert.Equal(t, "Emma", got.Title)

	_, ok = v.Get("missing")
	assert.False(t, ok)
}

func TestViewSearch(t *testing.T) {
	v, _ := setupView(t, map[string]Book{
		"b1": {Title: "Dune", Author: "Frank Herbert", Publisher: "Chilton", ISBN: "9780441172719"},
		"b2": {Title: "Emma", Author: "Jane Austen", Publisher: "John Murray", ISBN: "9780141439587"},
	})

	assert.Len(t, v.Search("dune"), 1)
	assert.Len(t, v.Search("AUSTEN"), 1)
	assert.Len(t, v.Search("murray"), 1)
	assert.Len(t, v.Search("9780441"), 1)
	assert.Len(t, v.Search(""), 2)

	none := v.Search("no such book anywhere")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestViewFilterByCategory(t *testing.T) {
	v, _ := setupView(t, map[string]Book{
		"b1": {Title: "Dune", Category: "Science Fiction"},
		"b2": {Title: "Emma", Category: "Romance"},
		"b3": {Title: "Foundation", Category: "science fiction"},
	})

	sf := v.FilterByCategory("Science Fiction")
	assert.Len(t, sf, 2)

	none := v.FilterByCategory("Cooking")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestViewAppliesRemoteChanges(t *testing.T) {
	v, gw := setupView(t, map[string]Book{
		"b1": {Title: "Dune", Stock: 5},
	})

	require.NoError(t, gw.Update(context.Background(), BooksPath+"/b1", map[string]interface{}{
		"stock": 2,
	}))

	assert.Eventually(t, func() bool {
		b, ok := v.Get("b1")
		return ok && b.Stock == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, gw.Write(context.Background(), BooksPath+"/b2", Book{Title: "Emma"}))

	assert.Eventually(t, func() bool {
		return len(v.Books()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestViewOutlivesStartupContext(t *testing.T) {
	gw := gateway.NewMemory()
	t.Cleanup(func() { gw.Close() })

	require.NoError(t, gw.Write(context.Background(), BooksPath+"/b1", Book{Title: "Dune"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	v, err := NewView(ctx, gw, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(v.Close)

	// The startup context ends; the subscription must keep feeding the view.
	cancel()

	require.NoError(t, gw.Write(context.Background(), BooksPath+"/b2", Book{Title: "Emma"}))

	assert.Eventually(t, func() bool {
		return len(v.Books()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestViewSections(t *testing.T) {
	books := map[string]Book{}
	for i := 0; i < 40; i++ {
		books[pushStyleID(i)] = Book{Title: "Book", Stock: i}
	}
	v, _ := setupView(t, books)

	top, latest, upcoming := v.Sections()
	assert.Len(t, top, 15)
	assert.Len(t, latest, 15)
	assert.Len(t, upcoming, 10)

	seen := map[int]bool{}
	for _, b := range top {
		seen[b.Stock] = true
	}
	for _, b := range latest {
		assert.False(t, seen[b.Stock], "book appears in two sections")
	}
}

func TestViewSectionsSmallCatalog(t *testing.T) {
	v, _ := setupView(t, map[string]Book{
		"b1": {Title: "Dune"},
	})

	top, latest, upcoming := v.Sections()
	assert.Len(t, top, 1)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)
	assert.NotNil(t, upcoming)
	assert.Empty(t, upcoming)
}

func pushStyleID(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26))
}
