package source

import "github.com/reson-group/lead-radar/internal/fetch"

// DefaultRegistry builds the registry with every production adapter. The
// set is fixed at startup; there is no dynamic discovery.
func DefaultRegistry(client *fetch.Client) *Registry {
	r := NewRegistry()
	r.Register(NewEtherCAT(client))
	r.Register(NewUR(client))
	r.Register(NewSiemens(client))
	r.Register(NewBeckhoff(client))
	r.Register(NewPROFINET(client))
	r.Register(NewODVA(client))
	r.Register(NewROS2(client))
	return r
}
