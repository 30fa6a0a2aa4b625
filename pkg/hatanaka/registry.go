package hatanaka

import (
	"github.com/de-bkg/hatanaka/pkg/gnss"
)

// Observable holds the kernels of one observation type of a satellite.
type Observable struct {
	Value *NumKernel  // the observation value
	LLI   *TextKernel // loss of lock indicator
	SSI   *TextKernel // signal strength indicator
}

// reset starts new arcs for the value and blank flags.
func (obs *Observable) reset() {
	obs.Value.Reset()
	obs.LLI.Init(" ")
	obs.SSI.Init(" ")
}

// Registry holds the kernels for all satellites and observation types of one file.
type Registry struct {
	order, maxOrder int
	sats            map[gnss.PRN][]*Observable
}

// NewRegistry returns an empty registry. New value kernels encode with order.
func NewRegistry(order, maxOrder int) (*Registry, error) {
	if _, err := NewNumKernel(order, maxOrder); err != nil {
		return nil, err
	}
	return &Registry{order: order, maxOrder: maxOrder, sats: map[gnss.PRN][]*Observable{}}, nil
}

// Get returns the kernels for the nCodes observation types of satellite prn, in header order.
// The kernels are created on first access.
func (r *Registry) Get(prn gnss.PRN, nCodes int) []*Observable {
	obss := r.sats[prn]
	for len(obss) < nCodes {
		val, _ := NewNumKernel(r.order, r.maxOrder) // order checked by NewRegistry
		obs := &Observable{Value: val, LLI: &TextKernel{}, SSI: &TextKernel{}}
		obs.reset()
		obss = append(obss, obs)
	}
	r.sats[prn] = obss
	return obss[:nCodes]
}

// Reset starts new arcs for all observation types of satellite prn, e.g. after a data gap.
func (r *Registry) Reset(prn gnss.PRN) {
	for _, obs := range r.sats[prn] {
		obs.reset()
	}
}

// Satellites returns the number of satellites seen so far.
func (r *Registry) Satellites() int {
	return len(r.sats)
}
