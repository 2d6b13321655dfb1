package lineitems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAppendsIncompleteSaleLine(t *testing.T) {
	set := NewSet()
	idx := set.Add()

	require.Equal(t, 0, idx)
	item, err := set.Item(idx)
	require.NoError(t, err)
	assert.False(t, item.Slot.IsResolved())
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, TypeSale, item.Type)
	assert.False(t, item.Complete())
}

func TestProductAndSearchAreMutuallyExclusive(t *testing.T) {
	set := NewSet()
	set.Add()

	require.NoError(t, set.SetSearch(0, "cad"))
	item, _ := set.Item(0)
	assert.Equal(t, "cad", item.Slot.SearchText())
	_, ok := item.Slot.ProductID()
	assert.False(t, ok)

	require.NoError(t, set.SetProduct(0, 7))
	item, _ = set.Item(0)
	id, ok := item.Slot.ProductID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Empty(t, item.Slot.SearchText())

	require.NoError(t, set.SetSearch(0, "mesa"))
	item, _ = set.Item(0)
	assert.False(t, item.Slot.IsResolved())
	assert.Equal(t, "mesa", item.Slot.SearchText())
}

func TestSetQuantityDoesNotClamp(t *testing.T) {
	set := NewSet()
	set.Add()
	require.NoError(t, set.SetProduct(0, 1))
	require.NoError(t, set.SetQuantity(0, 0))

	item, _ := set.Item(0)
	assert.Equal(t, 0, item.Quantity)
	assert.False(t, item.Complete())

	idx, found := set.FirstIncomplete()
	assert.True(t, found)
	assert.Equal(t, 0, idx)
}

func TestRemoveOutOfRangeIsAnError(t *testing.T) {
	set := NewSet()
	set.Add()

	assert.ErrorIs(t, set.Remove(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, set.Remove(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, set.SetQuantity(1, 2), ErrIndexOutOfRange)
	assert.Equal(t, 1, set.Len())

	require.NoError(t, set.Remove(0))
	assert.Equal(t, 0, set.Len())
}

func TestRemoveKeepsOrder(t *testing.T) {
	set := NewSet()
	for i := 0; i < 3; i++ {
		set.Add()
		require.NoError(t, set.SetProduct(i, int64(i+10)))
	}
	require.NoError(t, set.Remove(1))

	items := set.Items()
	require.Len(t, items, 2)
	first, _ := items[0].Slot.ProductID()
	second, _ := items[1].Slot.ProductID()
	assert.Equal(t, int64(10), first)
	assert.Equal(t, int64(12), second)
}

func TestSetTypeRejectsUnknown(t *testing.T) {
	set := NewSet()
	set.Add()
	assert.ErrorIs(t, set.SetType(0, Type("lease")), ErrUnknownType)
	require.NoError(t, set.SetType(0, TypeRental))
	item, _ := set.Item(0)
	assert.Equal(t, TypeRental, item.Type)
}

func TestCompleteRequiresLines(t *testing.T) {
	set := NewSet()
	assert.False(t, set.Complete())
	set.Add()
	require.NoError(t, set.SetProduct(0, 3))
	assert.True(t, set.Complete())
}

func TestCompletenessMatchesSubmittable(t *testing.T) {
	assert.False(t, LineItem{Slot: Resolved(0), Quantity: 1, Type: TypeSale}.Complete())
	assert.False(t, LineItem{Slot: Resolved(-4), Quantity: 1, Type: TypeSale}.Complete())
	assert.False(t, LineItem{Slot: Resolved(7), Quantity: 0, Type: TypeSale}.Complete())
	assert.True(t, LineItem{Slot: Resolved(7), Quantity: 1, Type: TypeSale}.Complete())

	assert.False(t, Submittable(0, 1))
	assert.False(t, Submittable(3, 0))
	assert.True(t, Submittable(3, 2))
}

func TestParseType(t *testing.T) {
	cases := map[string]Type{"sale": TypeSale, "Venda": TypeSale, " rental ": TypeRental, "aluguer": TypeRental}
	for raw, want := range cases {
		got, err := ParseType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("swap")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestItemsReturnsCopy(t *testing.T) {
	set := NewSet()
	set.Add()
	items := set.Items()
	items[0].Quantity = 99
	item, _ := set.Item(0)
	assert.Equal(t, 1, item.Quantity)
}
