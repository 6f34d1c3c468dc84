package content

// ChangeKind classifies a filesystem change. Reconciliation reads the current
// state of the path regardless of kind; the kind is informational.
type ChangeKind int

const (
	Created ChangeKind = iota
	Modified
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one changed path. Path may be absolute or relative to the
// content root.
type Change struct {
	Path string
	Kind ChangeKind
}

// Batch is a group of changes applied together before the index is rebuilt.
type Batch []Change

// Observer is notified after each batch that changed the store, once the new
// Index is in place. Applied runs on the service goroutine and must not block.
type Observer interface {
	Applied(d Delta, ix *Index)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d Delta, ix *Index)

func (f ObserverFunc) Applied(d Delta, ix *Index) { f(d, ix) }
