package schema

// Merge combines two schema nodes into a new node:
//
//   - a nil side (no-type marker) yields the other side
//   - two objects merge field by field; a field missing on one side counts as
//     a String leaf
//   - an object beats a leaf, whichever side it is on
//   - two leaves keep the higher precedence type, the left one on a tie
//
// A nil node is the bottom of the lattice: it marks a value that carried no
// type, such as a bare query flag, and gives way to anything it meets. This
// differs from a missing field, which widens to String. Keeping the marker
// means a flag that never carries a value still persists as null.
//
// Neither input is modified. The merge is commutative on results, associative,
// and Merge(x, x) is equal to x.
func Merge(a, b *Node) *Node {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.IsObject() && b.IsObject():
		return mergeObjects(a, b)
	case a.IsObject():
		return a
	case b.IsObject():
		return b
	default:
		if b.typ.Precedence() > a.typ.Precedence() {
			return b
		}
		return a
	}
}

func mergeObjects(a, b *Node) *Node {
	fields := make(map[string]*Node, len(a.fields)+len(b.fields))
	for name, av := range a.fields {
		bv, ok := b.fields[name]
		if !ok {
			bv = Leaf(String)
		}
		fields[name] = Merge(av, bv)
	}
	for name, bv := range b.fields {
		if _, seen := a.fields[name]; seen {
			continue
		}
		fields[name] = Merge(Leaf(String), bv)
	}
	return &Node{fields: fields}
}

// MergeAll left-folds Merge over nodes. It returns an empty object when nodes
// is empty.
func MergeAll(nodes ...*Node) *Node {
	if len(nodes) == 0 {
		return Empty()
	}
	merged := nodes[0]
	for _, n := range nodes[1:] {
		merged = Merge(merged, n)
	}
	return merged
}
