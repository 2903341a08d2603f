package location

import (
	"sync"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// Fanout tracks the callback registrations of a broker-backed Provider. The
// zero value is ready to use.
type Fanout struct {
	mu     sync.Mutex
	nextID int
	regs   map[int]fanoutReg
}

type fanoutReg struct {
	onFix     func(domain.LocationFix)
	onFailure func(error)
}

// Register adds a callback pair and returns its idempotent cancel func.
func (f *Fanout) Register(onFix func(domain.LocationFix), onFailure func(error)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.regs == nil {
		f.regs = make(map[int]fanoutReg)
	}
	id := f.nextID
	f.nextID++
	f.regs[id] = fanoutReg{onFix: onFix, onFailure: onFailure}

	return func() {
		f.mu.Lock()
		delete(f.regs, id)
		f.mu.Unlock()
	}
}

// Dispatch hands fix to every registration.
func (f *Fanout) Dispatch(fix domain.LocationFix) {
	for _, r := range f.snapshot(false) {
		r.onFix(fix)
	}
}

// Fail reports err to every registration and drops them all.
func (f *Fanout) Fail(err error) {
	for _, r := range f.snapshot(true) {
		r.onFailure(err)
	}
}

// Len returns the number of live registrations.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs)
}

func (f *Fanout) snapshot(drop bool) []fanoutReg {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]fanoutReg, 0, len(f.regs))
	for id, r := range f.regs {
		out = append(out, r)
		if drop {
			delete(f.regs, id)
		}
	}
	return out
}
