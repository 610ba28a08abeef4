package relay

import "fmt"

// CursorState is the position of a wraparound cursor. It is either fresh,
// serving distinct instances in order, or exhausted, recycling them from the start.
type CursorState struct {
	// Index of the instance served by the last slot; -1 before the first slot.
	Index     int
	Exhausted bool
}

// Start is the state before any slot was served.
func Start() CursorState {
	return CursorState{Index: -1}
}

// Advance serves one slot. moved is the result of the underlying cursor's Next.
// When reset is true the caller must Reset the cursor and move it once more.
func (s CursorState) Advance(moved bool) (next CursorState, reset bool, err error) {
	if moved {
		return CursorState{Index: s.Index + 1, Exhausted: s.Exhausted}, false, nil
	}
	if s.Index < 0 {
		return s, false, ErrNoService
	}
	return CursorState{Index: 0, Exhausted: true}, true, nil
}

func (s CursorState) String() string {
	if s.Exhausted {
		return fmt.Sprintf("exhausted(%d)", s.Index)
	}
	return fmt.Sprintf("fresh(%d)", s.Index)
}

// Slots maps count parameter slots onto supply distinct instances.
// [A, B] over 3 slots yields [0, 1, 0].
func Slots(supply, count int) ([]int, error) {
	out := make([]int, 0, count)
	st := Start()
	for i := 0; i < count; i++ {
		var err error
		st, _, err = st.Advance(st.Index+1 < supply)
		if err != nil {
			return nil, err
		}
		out = append(out, st.Index)
	}
	return out, nil
}
