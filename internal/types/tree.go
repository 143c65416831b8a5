package types

// ContentTree is the ordered sequence of block instances and pattern
// references making up a page body. Order is the sole determinant of render
// and save order. All ids are unique within a tree; the tree may be empty.
type ContentTree []Element

// IndexOf returns the position of the element with the given id, or -1.
func (t ContentTree) IndexOf(id string) int {
	for i, el := range t {
		if el.ID() == id {
			return i
		}
	}
	return -1
}

// Contains reports whether an element with the given id exists in the tree.
func (t ContentTree) Contains(id string) bool {
	return t.IndexOf(id) >= 0
}

// IDs returns all element ids in tree order.
func (t ContentTree) IDs() []string {
	ids := make([]string, len(t))
	for i, el := range t {
		ids[i] = el.ID()
	}
	return ids
}

// Clone returns a deep copy of the tree.
func (t ContentTree) Clone() ContentTree {
	if t == nil {
		return nil
	}
	out := make(ContentTree, len(t))
	for i, el := range t {
		out[i] = el.Clone()
	}
	return out
}
