package dash

import "github.com/juju/errors"

// registry is an append-only insertion-ordered feed map. Registration
// order doubles as display row order: the k-th registered feed gets
// Index=k and visual row k+1 (row 0 is the header).
type registry struct {
	order []*Feed
	index map[string]*Feed
}

func newRegistry() *registry {
	return &registry{index: make(map[string]*Feed, 16)}
}

func (self *registry) Add(f *Feed) error {
	if _, ok := self.index[f.Key]; ok {
		return errors.AlreadyExistsf("feed key=%s", f.Key)
	}
	f.Index = len(self.order)
	self.order = append(self.order, f)
	self.index[f.Key] = f
	return nil
}

func (self *registry) Lookup(key string) (*Feed, error) {
	if f, ok := self.index[key]; ok {
		return f, nil
	}
	return nil, errors.NotFoundf("feed key=%s", key)
}

// At takes 0-based registration index, panics out of range.
func (self *registry) At(i int) *Feed { return self.order[i] }

func (self *registry) Len() int { return len(self.order) }

func (self *registry) Keys() []string {
	ks := make([]string, len(self.order))
	for i, f := range self.order {
		ks[i] = f.Key
	}
	return ks
}
