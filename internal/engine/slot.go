package engine

// Slot identifies a location in which to cache a query result: the pair
// (query id, key). Two invocations of the same query with the same key
// share a slot.
type Slot struct {
	ID  QueryID
	Key Key
}

func newSlot(id QueryID, key IntoKey) Slot {
	return Slot{ID: id, Key: key.intoKey()}
}

// String renders the slot as a function call, e.g. "one_year_fee(17)" or
// "base_fee()" for a Void key.
func (s Slot) String() string {
	if s.Key.Kind() == KeyVoid {
		return s.ID + "()"
	}
	return s.ID + "(" + s.Key.String() + ")"
}
