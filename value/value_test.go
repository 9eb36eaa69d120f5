package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/keel/value"
)

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	m := value.NewMap()
	m.Set("name", value.String("Toiletries"))
	m.Set("id", value.Int64(1))
	m.Set("name", value.String("Toiletries Updated")) // overwrite keeps position

	require.Equal(t, []string{"name", "id"}, m.Keys())

	v, ok := m.Get("name")
	require.True(t, ok)
	assert.Equal(t, value.String("Toiletries Updated"), v)

	m.Delete("name")
	assert.Equal(t, []string{"id"}, m.Keys())
	_, ok = m.Get("name")
	assert.False(t, ok)
}

func TestMapRangeStopsEarly(t *testing.T) {
	t.Parallel()

	m := value.NewMap()
	m.Set("a", value.Int32(1))
	m.Set("b", value.Int32(2))
	m.Set("c", value.Int32(3))

	var seen []string
	m.Range(func(k string, v value.Value) bool {
		seen = append(seen, k)
		return k != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestPathString(t *testing.T) {
	t.Parallel()

	p := value.Path{}.Key("create").Key("products").Index(2).Key("name")
	assert.Equal(t, "create.products[2].name", p.String())
	assert.Equal(t, "name", p.Last())

	empty := value.Path{}
	assert.Equal(t, "", empty.String())
	assert.Equal(t, "", empty.Last())
}

func TestDateOfTruncatesToUTCCivilDate(t *testing.T) {
	t.Parallel()

	d := value.Date{Year: 2026, Month: 7, Day: 31}
	assert.Equal(t, "2026-07-31", d.String())
	assert.Equal(t, d, value.DateOf(d.Time()))
}

func TestIsNull(t *testing.T) {
	t.Parallel()

	assert.True(t, value.IsNull(nil))
	assert.True(t, value.IsNull(value.Null{}))
	assert.False(t, value.IsNull(value.Int32(0)))
}
