package state

import (
	"encoding/json"
	"sync"

	"github.com/shimmeringbee/persistence"
)

// Published tracks the last value actually pushed to the host platform per
// capability, and mirrors it into a persistence section so a restart does
// not re-push values the host already holds. A capability is only ever
// recorded here strictly after a successful host update.
type Published struct {
	lock    sync.Mutex
	values  map[Capability]any
	section persistence.Section
}

func NewPublished(s persistence.Section) *Published {
	p := &Published{
		values:  map[Capability]any{},
		section: s,
	}

	for _, key := range s.Keys() {
		encoded, found := s.String(key)
		if !found {
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			continue
		}

		p.values[Capability(key)] = value
	}

	return p
}

func (p *Published) Get(c Capability) (any, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	v, found := p.values[c]
	return v, found
}

func (p *Published) Set(c Capability, value any) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.values[c] = value

	if encoded, err := json.Marshal(value); err == nil {
		p.section.Set(string(c), string(encoded))
	}
}

func (p *Published) All() map[Capability]any {
	p.lock.Lock()
	defer p.lock.Unlock()

	result := make(map[Capability]any, len(p.values))
	for c, v := range p.values {
		result[c] = v
	}

	return result
}
