package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/maxpoletaev/gms/api/model"
)

type MembersHandler struct {
	group Group
}

func NewMembersHandler(group Group) *MembersHandler {
	return &MembersHandler{
		group: group,
	}
}

func (api *MembersHandler) Register(r chi.Router) {
	r.Get("/members", api.getMembers)
}

func (api *MembersHandler) getMembers(w http.ResponseWriter, r *http.Request) {
	members := api.group.Members()
	viewNumber, viewMembers := api.group.View()

	resp := model.GetMembersResponse{
		ViewNumber:  viewNumber,
		ViewMembers: viewMembers.Indexes(),
		Members:     make([]model.Member, len(members)),
	}

	if resp.ViewMembers == nil {
		resp.ViewMembers = []int{}
	}

	for i, m := range members {
		resp.Members[i] = model.Member{
			ID:         m.ID.String(),
			Addr:       m.Addr.String(),
			Status:     m.Status.String(),
			Time:       m.Time,
			ViewNumber: m.ViewNumber,
			Preferred:  m.Preferred,
			LastSeen:   m.LastSeen,
		}
	}

	render.JSON(w, r, resp)
}
