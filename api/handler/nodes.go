package handler

import (
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/gms/api/model"
	"github.com/maxpoletaev/gms/internal/generic"
)

type NodesHandler struct {
	cluster Cluster
}

func NewNodesHandler(cluster Cluster) *NodesHandler {
	return &NodesHandler{
		cluster: cluster,
	}
}

func (api *NodesHandler) Register(r chi.Router) {
	r.Get("/endpoints", api.getEndpoints)
	r.Get("/view", api.getView)
}

func (api *NodesHandler) getEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints := api.cluster.Endpoints()
	resp := make([]model.Endpoint, len(endpoints))

	for i, ep := range endpoints {
		resp[i] = model.Endpoint{
			Addr:   ep.Addr.String(),
			Status: string(ep.Status),
			Alive:  ep.Alive,
			Local:  ep.Local,
			Seed:   ep.Seed,
			Phi:    ep.Phi,
		}

		if state := ep.State; state != nil {
			resp[i].Time = state.Time
			resp[i].ViewNumber = state.ViewNumber
			resp[i].Members = state.Members.Indexes()
			resp[i].Preferred = state.Preferred
			resp[i].DiscoveryOnly = state.DiscoveryOnly

			if !state.DiscoveryOnly {
				resp[i].Sender = state.Sender.String()
			}
		}
	}

	render.JSON(w, r, model.GetEndpointsResponse{
		Endpoints: resp,
	})
}

func (api *NodesHandler) getView(w http.ResponseWriter, r *http.Request) {
	view := api.cluster.View()

	render.JSON(w, r, model.GetViewResponse{
		Local:       api.cluster.LocalAddr().String(),
		Live:        addrStrings(view.Live()),
		Unreachable: deadAddrs(view.Unreachable()),
		Quarantined: deadAddrs(view.Quarantined()),
		Seeds:       addrStrings(view.Seeds()),
		StateHash:   strconv.FormatUint(api.cluster.StateHash(), 16),
	})
}

func addrStrings(addrs []netip.AddrPort) []string {
	res := make([]string, len(addrs))
	for i, addr := range addrs {
		res[i] = addr.String()
	}

	return res
}

func deadAddrs(m map[netip.AddrPort]time.Time) []model.DeadAddr {
	addrs := generic.MapKeys(m)
	generic.SortSliceFunc(addrs, func(a, b netip.AddrPort) int {
		return a.Compare(b)
	})

	res := make([]model.DeadAddr, len(addrs))
	for i, addr := range addrs {
		res[i] = model.DeadAddr{
			Addr:  addr.String(),
			Since: m[addr],
		}
	}

	return res
}
