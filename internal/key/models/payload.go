package models

// PayloadKind is the closed set of payload slots a key can carry. Each kind
// holds exactly one current value; writes go through Upsert so a key never
// accumulates duplicate kinds.
type PayloadKind string

const (
	PayloadDisplayName PayloadKind = "display_name"
	PayloadCategories  PayloadKind = "categories"
	PayloadCars        PayloadKind = "cars"
)

// PayloadItem is one slot value. Text carries the value for display-name;
// List carries it for categories and cars. The shape is selected by Kind.
type PayloadItem struct {
	Kind PayloadKind
	Text string
	List []string
}

// Payload is the embedded attribute snapshot of a key.
type Payload struct {
	items []PayloadItem
}

// NewPayload builds a payload from items, applying upsert semantics so later
// duplicates of a kind win.
func NewPayload(items ...PayloadItem) Payload {
	var p Payload
	for _, item := range items {
		p.Upsert(item)
	}
	return p
}

// Upsert replaces the item of the same kind, or appends when absent.
func (p *Payload) Upsert(item PayloadItem) {
	for i := range p.items {
		if p.items[i].Kind == item.Kind {
			p.items[i] = item
			return
		}
	}
	p.items = append(p.items, item)
}

// Find returns the item of the given kind, if present.
func (p Payload) Find(kind PayloadKind) (PayloadItem, bool) {
	for _, item := range p.items {
		if item.Kind == kind {
			return item, true
		}
	}
	return PayloadItem{}, false
}

// Items returns the stored items in insertion order.
func (p Payload) Items() []PayloadItem {
	return p.items
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (p Payload) Clone() Payload {
	cloned := Payload{items: make([]PayloadItem, len(p.items))}
	for i, item := range p.items {
		item.List = append([]string(nil), item.List...)
		cloned.items[i] = item
	}
	return cloned
}
