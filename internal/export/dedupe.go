package export

// Tracker remembers which entities have been written so that repeats can be
// suppressed. Edge identity is the input relationship name plus
// "source_target".
type Tracker interface {
	SeenNode(typ, id string) (bool, error)
	RecordNode(typ, id string) error
	SeenEdge(inputType, pairID string) (bool, error)
	RecordEdge(inputType, pairID string) error
	Close() error
}

// entityKey identifies a written entity
type entityKey struct {
	edge bool
	typ  string
	id   string
}

// EdgePairID joins source and target ids the way duplicate reports show them
func EdgePairID(source, target string) string {
	return source + "_" + target
}

// MemoryTracker keeps seen ids in maps
type MemoryTracker struct {
	nodes map[string]map[string]struct{}
	edges map[string]map[string]struct{}
}

// NewMemoryTracker creates an empty MemoryTracker
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		nodes: make(map[string]map[string]struct{}),
		edges: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryTracker) SeenNode(typ, id string) (bool, error) {
	_, ok := m.nodes[typ][id]
	return ok, nil
}

func (m *MemoryTracker) RecordNode(typ, id string) error {
	record(m.nodes, typ, id)
	return nil
}

func (m *MemoryTracker) SeenEdge(inputType, pairID string) (bool, error) {
	_, ok := m.edges[inputType][pairID]
	return ok, nil
}

func (m *MemoryTracker) RecordEdge(inputType, pairID string) error {
	record(m.edges, inputType, pairID)
	return nil
}

func (m *MemoryTracker) Close() error {
	return nil
}

func record(set map[string]map[string]struct{}, typ, id string) {
	ids, ok := set[typ]
	if !ok {
		ids = make(map[string]struct{})
		set[typ] = ids
	}
	ids[id] = struct{}{}
}

// seen checks a key against the tracker
func seen(t Tracker, k entityKey) (bool, error) {
	if k.edge {
		return t.SeenEdge(k.typ, k.id)
	}
	return t.SeenNode(k.typ, k.id)
}

// commitKeys records keys in the tracker
func commitKeys(t Tracker, keys []entityKey) error {
	for _, k := range keys {
		var err error
		if k.edge {
			err = t.RecordEdge(k.typ, k.id)
		} else {
			err = t.RecordNode(k.typ, k.id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
