package services

import "sync"

// visitedSet is the shared seen-paragraph set for one story. Every session of
// the service marks into the same instance, so "have I read this before" spans
// sessions and survives saves.
type visitedSet struct {
	mu    sync.Mutex
	paras map[string]struct{}
}

func newVisitedSet(paras []string) *visitedSet {
	v := &visitedSet{paras: make(map[string]struct{}, len(paras))}
	for _, p := range paras {
		v.paras[p] = struct{}{}
	}
	return v
}

func (v *visitedSet) Mark(para string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paras[para] = struct{}{}
}

func (v *visitedSet) Seen(para string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.paras[para]
	return ok
}

// List returns the marked paragraphs in unspecified order.
func (v *visitedSet) List() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	paras := make([]string, 0, len(v.paras))
	for p := range v.paras {
		paras = append(paras, p)
	}
	return paras
}
