package state

// Snapshot is the canonical per-device state: capability name to the last
// decoded reading. Snapshots are values, never mutated in place; a decode
// produces a new snapshot via Merge and the pipeline swaps it in whole, so
// a failed decode can discard its attempt without disturbing prior state.
type Snapshot map[Capability]Reading

func NewSnapshot() Snapshot {
	return Snapshot{}
}

func (s Snapshot) Get(c Capability) (Reading, bool) {
	r, found := s[c]
	return r, found
}

// Merge returns a new snapshot with the readings in update applied over the
// receiver. Capabilities absent from update keep their prior reading, so a
// partial payload never destroys previously known values.
func (s Snapshot) Merge(update Snapshot) Snapshot {
	result := make(Snapshot, len(s)+len(update))

	for c, r := range s {
		result[c] = r
	}

	for c, r := range update {
		result[c] = r
	}

	return result
}

func (s Snapshot) Capabilities() []Capability {
	var result []Capability

	for c := range s {
		result = append(result, c)
	}

	return result
}
