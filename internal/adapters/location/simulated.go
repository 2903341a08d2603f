package location

import (
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// ErrProviderDisabled is passed to onFailure when a simulated provider is
// switched off under active subscriptions.
var ErrProviderDisabled = errors.New("simulated provider disabled")

// SimulatedProvider reports a settable position on a timer. It replaces the
// device provider in demos and previews.
type SimulatedProvider struct {
	deviceID string

	mu       sync.Mutex
	position domain.GeoPoint
	enabled  bool
	nextID   int
	subs     map[int]*simRegistration
}

type simRegistration struct {
	onFailure func(error)
	stop      chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
}

func (r *simRegistration) cancel() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// NewSimulatedProvider creates an enabled provider positioned at start.
func NewSimulatedProvider(deviceID string, start domain.GeoPoint) *SimulatedProvider {
	return &SimulatedProvider{
		deviceID: deviceID,
		position: start,
		enabled:  true,
		subs:     make(map[int]*simRegistration),
	}
}

// Enabled implements Provider.
func (p *SimulatedProvider) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEnabled toggles the provider. Disabling fails every active registration.
func (p *SimulatedProvider) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	var failed []*simRegistration
	if !enabled {
		for id, r := range p.subs {
			failed = append(failed, r)
			delete(p.subs, id)
		}
	}
	p.mu.Unlock()

	for _, r := range failed {
		r.onFailure(ErrProviderDisabled)
		r.cancel()
	}
}

// MoveTo sets the position reported from the next tick on.
func (p *SimulatedProvider) MoveTo(pt domain.GeoPoint) {
	p.mu.Lock()
	p.position = pt
	p.mu.Unlock()
}

// Position returns the current simulated position.
func (p *SimulatedProvider) Position() domain.GeoPoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// RequestUpdates implements Provider. The first fix is reported immediately.
func (p *SimulatedProvider) RequestUpdates(interval time.Duration, onFix func(domain.LocationFix), onFailure func(error)) (func(), error) {
	if interval <= 0 {
		interval = time.Second
	}

	p.mu.Lock()
	if !p.enabled {
		p.mu.Unlock()
		return nil, ErrProviderDisabled
	}
	id := p.nextID
	p.nextID++
	reg := &simRegistration{onFailure: onFailure, stop: make(chan struct{})}
	p.subs[id] = reg
	p.mu.Unlock()

	reg.wg.Add(1)
	go func() {
		defer reg.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			pt := p.Position()
			onFix(domain.LocationFix{
				Lat:       pt.Lat,
				Lon:       pt.Lon,
				Timestamp: time.Now().UTC(),
				DeviceID:  p.deviceID,
			})
			select {
			case <-reg.stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
		reg.cancel()
	}, nil
}
