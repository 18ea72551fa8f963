package registry

// Record is anything a List can hold.
type Record interface {
	ChannelName() string
}

// List is an index-addressed sequence of channel records of one kind.
//
// Indices are dense from 0. Referencing an index past the end appends filler
// records for every missing slot, so an unconfigured channel the firmware
// reports on still gets a record.
type List[R Record] struct {
	items  []R
	filler func(index int) R
}

func NewList[R Record](filler func(index int) R) *List[R] {
	return &List[R]{filler: filler}
}

// At returns the record at index, growing the list with fillers if needed.
func (l *List[R]) At(index int) R {
	for len(l.items) <= index {
		l.items = append(l.items, l.filler(len(l.items)))
	}
	return l.items[index]
}

// Set places r at index, growing the list with fillers if needed.
func (l *List[R]) Set(index int, r R) {
	l.At(index)
	l.items[index] = r
}

func (l *List[R]) Len() int { return len(l.items) }

// Items returns the backing records in index order.
func (l *List[R]) Items() []R { return l.items }

// Indices returns every index whose record is called name.
func (l *List[R]) Indices(name string) []int {
	var out []int
	for i, r := range l.items {
		if r.ChannelName() == name {
			out = append(out, i)
		}
	}
	return out
}

// Lookup returns the last record called name.
func (l *List[R]) Lookup(name string) (R, bool) {
	var (
		found R
		ok    bool
	)
	for _, r := range l.items {
		if r.ChannelName() == name {
			found, ok = r, true
		}
	}
	return found, ok
}
