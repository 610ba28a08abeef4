package relay

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conn struct{ name string }

type store interface{ Name() string }

type memStore struct{}

func (memStore) Name() string { return "mem" }

func TestSlots(t *testing.T) {
	tests := []struct {
		name   string
		supply int
		count  int
		want   []int
		err    bool
	}{
		{"two instances three slots", 2, 3, []int{0, 1, 0}, false},
		{"wraps repeatedly", 2, 5, []int{0, 1, 0, 1, 0}, false},
		{"single instance", 1, 3, []int{0, 0, 0}, false},
		{"enough supply", 3, 2, []int{0, 1}, false},
		{"empty supply fails", 0, 2, nil, true},
		{"no slots", 0, 0, []int{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slots(tt.supply, tt.count)
			if tt.err {
				assert.ErrorIs(t, err, ErrNoService)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCursorState(t *testing.T) {
	st := Start()
	assert.Equal(t, "fresh(-1)", st.String())

	_, _, err := st.Advance(false)
	assert.ErrorIs(t, err, ErrNoService, "only the first slot may fail")

	st, reset, err := st.Advance(true)
	require.NoError(t, err)
	assert.False(t, reset)

	st, reset, err = st.Advance(false)
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, "exhausted(0)", st.String())
}

func TestRequired(t *testing.T) {
	reg := NewRegistry()

	_, err := Required[store](reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoService)
	var nse *NoServiceError
	require.True(t, errors.As(err, &nse))
	assert.Equal(t, "no service for type 'relay.store' has been registered", err.Error())

	Register[store](reg, memStore{})
	s, err := Required[store](reg)
	require.NoError(t, err)
	assert.Equal(t, "mem", s.Name())

	_, err = Required[store](nil)
	assert.ErrorIs(t, err, ErrNilProvider)
}

func TestRequired_WrongType(t *testing.T) {
	reg := NewRegistry()
	reg.Add(TypeOf[*conn](), "not a conn")
	_, err := Required[*conn](reg)
	assert.ErrorIs(t, err, ErrServiceType)
}

func TestCyclic(t *testing.T) {
	a, b := &conn{"a"}, &conn{"b"}

	t.Run("wraps to the first instance", func(t *testing.T) {
		reg := NewRegistry()
		Register(reg, a)
		Register(reg, b)

		got, err := Cyclic[*conn](reg, 3)
		require.NoError(t, err)
		assert.Equal(t, []*conn{a, b, a}, got)
	})

	t.Run("no instances fails", func(t *testing.T) {
		_, err := Cyclic[*conn](NewRegistry(), 2)
		assert.ErrorIs(t, err, ErrNoService)
	})

	t.Run("fewer slots than instances", func(t *testing.T) {
		reg := NewRegistry()
		Register(reg, a)
		Register(reg, b)
		got, err := Cyclic[*conn](reg, 1)
		require.NoError(t, err)
		assert.Equal(t, []*conn{a}, got)
	})
}

// countingProvider records how the generated code drives the cursor.
type countingProvider struct {
	items  []any
	resets int
}

func (p *countingProvider) Required(t reflect.Type) (any, error) {
	return nil, &NoServiceError{Type: t}
}

func (p *countingProvider) All(reflect.Type) Cursor {
	return &countingCursor{sliceCursor: sliceCursor{items: p.items, pos: -1}, p: p}
}

type countingCursor struct {
	sliceCursor
	p *countingProvider
}

func (c *countingCursor) Reset() {
	c.p.resets++
	c.sliceCursor.Reset()
}

func TestCyclic_MatchesSlots(t *testing.T) {
	p := &countingProvider{items: []any{1, 2, 3}}
	got, err := Cyclic[int](p, 7)
	require.NoError(t, err)

	slots, err := Slots(3, 7)
	require.NoError(t, err)
	want := make([]int, len(slots))
	for i, s := range slots {
		want[i] = p.items[s].(int)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 2, p.resets)
}

func TestAs(t *testing.T) {
	c := &conn{"a"}
	got, err := As[*conn](any(c))
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = As[*conn]("nope")
	assert.ErrorIs(t, err, ErrInterceptorResult)
}
