package domain

// Node is a handle on one element of the on-screen UI tree.
// Handles are scoped: whoever obtains a child through Child must Release it.
type Node interface {
	Text() (string, error)
	ViewID() string
	// ChildCount is reported by the platform and may disagree with the
	// children actually available through Child.
	ChildCount() int
	// Child returns nil when the index has no child.
	Child(i int) (Node, error)
	Release()
}

// Element is a snapshot of a UI tree node decoded from the event feeds.
type Element struct {
	ID       string     `json:"view_id,omitempty"`
	Value    string     `json:"text,omitempty"`
	Count    *int       `json:"child_count,omitempty"`
	Children []*Element `json:"children,omitempty"`
}

func (e *Element) Text() (string, error) { return e.Value, nil }

func (e *Element) ViewID() string { return e.ID }

func (e *Element) ChildCount() int {
	if e.Count != nil {
		return *e.Count
	}
	return len(e.Children)
}

func (e *Element) Child(i int) (Node, error) {
	if i < 0 || i >= len(e.Children) || e.Children[i] == nil {
		return nil, nil
	}
	return e.Children[i], nil
}

// Release is a no-op: snapshots hold no platform resources.
func (e *Element) Release() {}
