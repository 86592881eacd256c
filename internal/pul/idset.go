package pul

// idSet is an owned set of document identifiers. Each primitive holds
// its own copy; clones never share one.
type idSet map[string]struct{}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s *idSet) add(id string) {
	if *s == nil {
		*s = make(idSet)
	}
	(*s)[id] = struct{}{}
}

func (s idSet) remove(id string) {
	delete(s, id)
}

func (s idSet) clone() idSet {
	if s == nil {
		return nil
	}
	out := make(idSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
