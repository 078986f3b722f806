package history

// Kind tags an undo entry.
type Kind int

const (
	VectorAdd Kind = iota
	VectorRemove
	MaskAdd
	MaskRemove
)

func (k Kind) String() string {
	switch k {
	case VectorAdd:
		return "vector_add"
	case VectorRemove:
		return "vector_remove"
	case MaskAdd:
		return "mask_add"
	case MaskRemove:
		return "mask_remove"
	default:
		return "unknown"
	}
}

// Family groups kinds that are recorded together.
type Family int

const (
	FamilyVector Family = iota
	FamilyRaster
	numFamilies
)

// Family returns the family k belongs to.
func (k Kind) Family() Family {
	if k == MaskAdd || k == MaskRemove {
		return FamilyRaster
	}
	return FamilyVector
}

// Entry is one undoable operation. Vector entries carry a serialized stroke;
// raster entries carry a full pixel snapshot of one layer.
type Entry struct {
	Kind       Kind
	StrokeID   string
	Descriptor []byte
	LayerID    string
	Snapshot   []byte

	seq uint64
}

// stack is a bounded LIFO that evicts its oldest entry when full.
type stack struct {
	entries  []Entry
	capacity int
}

func newStack(capacity int) *stack {
	return &stack{capacity: capacity}
}

func (s *stack) push(e Entry) {
	if s.capacity <= 0 {
		return
	}
	if len(s.entries) == s.capacity {
		s.entries[0] = Entry{}
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, e)
}

func (s *stack) pop() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	last := len(s.entries) - 1
	e := s.entries[last]
	s.entries[last] = Entry{}
	s.entries = s.entries[:last]
	return e, true
}

// top returns the sequence number of the newest entry.
func (s *stack) top() (uint64, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	return s.entries[len(s.entries)-1].seq, true
}

func (s *stack) len() int { return len(s.entries) }

func (s *stack) clear() { s.entries = nil }

// drop removes every entry matching fn.
func (s *stack) drop(fn func(Entry) bool) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !fn(e) {
			kept = append(kept, e)
		}
	}
	clear(s.entries[len(kept):])
	s.entries = kept
}
