package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Therealpare/Bookstore/internal/catalog"
)

func testBook(id string, price catalog.Price) catalog.Book {
	return catalog.Book{
		ID:     id,
		Title:  "Book " + id,
		Author: "Author " + id,
		Price:  price,
	}
}

func TestAddAndIncrement(t *testing.T) {
	store := NewStore()

	store.Add(testBook("a", 1000))
	store.Add(testBook("b", 2500))
	store.Add(testBook("a", 1000))

	lines := store.Lines()
	assert.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].Book.ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "b", lines[1].Book.ID)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.Equal(t, 3, store.Count())
	assert.Equal(t, catalog.Price(4500), store.TotalPrice())
}

func TestDecreaseRemovesAtOne(t *testing.T) {
	store := NewStore()
	store.Add(testBook("a", 1000))

	store.Decrease("a")
	assert.Empty(t, store.Lines())
	assert.Equal(t, 0, store.Count())
}

func TestDecreaseAbsentIsNoop(t *testing.T) {
	store := NewStore()
	store.Add(testBook("a", 1000))

	store.Decrease("missing")
	lines := store.Lines()
	assert.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestIncreaseAbsentIsNoop(t *testing.T) {
	store := NewStore()

	store.Increase("missing")
	assert.Empty(t, store.Lines())
}

func TestRemoveAndReAddGoesToEnd(t *testing.T) {
	store := NewStore()
	store.Add(testBook("a", 1000))
	store.Add(testBook("b", 2000))
	store.Remove("a")
	store.Add(testBook("a", 1000))

	lines := store.Lines()
	assert.Equal(t, "b", lines[0].Book.ID)
	assert.Equal(t, "a", lines[1].Book.ID)
}

func TestClear(t *testing.T) {
	store := NewStore()
	store.Add(testBook("a", 1000))
	store.Add(testBook("b", 2000))

	store.Clear()
	assert.Empty(t, store.Lines())
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, catalog.Price(0), store.TotalPrice())
}

// Quantities stay >= 1 and the count matches the quantity sum across any
// operation sequence.
func TestQuantityInvariants(t *testing.T) {
	store := NewStore()

	ops := []func(){
		func() { store.Add(testBook("a", 100)) },
		func() { store.Add(testBook("b", 200)) },
		func() { store.Increase("a") },
		func() { store.Decrease("b") },
		func() { store.Decrease("b") },
		func() { store.Add(testBook("c", 300)) },
		func() { store.Increase("c") },
		func() { store.Remove("a") },
		func() { store.Decrease("c") },
		func() { store.Add(testBook("a", 100)) },
	}

	for _, op := range ops {
		op()
		sum := 0
		for _, l := range store.Lines() {
			assert.GreaterOrEqual(t, l.Quantity, 1)
			sum += l.Quantity
		}
		assert.Equal(t, sum, store.Count())
	}
}

func TestSubscribeBroadcastsSnapshots(t *testing.T) {
	store := NewStore()

	var snapshots [][]Line
	cancel := store.Subscribe(func(lines []Line) {
		snapshots = append(snapshots, lines)
	})

	store.Add(testBook("a", 100))
	store.Increase("a")
	assert.Len(t, snapshots, 2)
	assert.Equal(t, 2, snapshots[1][0].Quantity)

	cancel()
	store.Clear()
	assert.Len(t, snapshots, 2)
}
