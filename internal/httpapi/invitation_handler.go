package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/kanak/internal/service"
)

type invitationHandler struct {
	svc *service.InvitationService
}

func (h *invitationHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{invitationID}/respond", h.respond)
}

type respondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

func (h *invitationHandler) list(w http.ResponseWriter, r *http.Request) {
	invs, err := h.svc.ListPending(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvitationResponseList(invs))
}

func (h *invitationHandler) respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decode(w, r, &req) {
		return
	}

	inv, err := h.svc.Respond(r.Context(), chi.URLParam(r, "invitationID"), *req.Accept)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvitationResponse(inv))
}
