package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/kanak/internal/errs"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/report"
	"github.com/mmynk/kanak/internal/service"
)

type groupHandler struct {
	svc          *service.GroupService
	transactions *transactionHandler
}

func (h *groupHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)

	r.Route("/{groupID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)

		r.Post("/members", h.addMember)
		r.Put("/members/{userID}", h.changeRole)
		r.Delete("/members/{userID}", h.removeMember)
		r.Post("/leave", h.leave)

		r.Get("/invitations", h.invitations)
		r.Get("/balances", h.balances)
		r.Get("/report", h.report)

		r.Route("/transactions", h.transactions.Routes)
	})
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type addMemberRequest struct {
	// Identifier is an email for registered users and a display name for guests.
	Identifier string      `json:"identifier" validate:"required,max=254"`
	Role       models.Role `json:"role" validate:"required,oneof=ADMIN EDITOR CONTRIBUTOR VIEWER GUEST"`
}

type changeRoleRequest struct {
	Role models.Role `json:"role" validate:"required,oneof=ADMIN EDITOR CONTRIBUTOR VIEWER"`
}

func (h *groupHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decode(w, r, &req) {
		return
	}

	group, err := h.svc.CreateGroup(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (h *groupHandler) list(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.ListGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponseList(groups))
}

func (h *groupHandler) get(w http.ResponseWriter, r *http.Request) {
	group, err := h.svc.GetGroup(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *groupHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if !decode(w, r, &req) {
		return
	}

	group, err := h.svc.UpdateGroup(r.Context(), chi.URLParam(r, "groupID"), service.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *groupHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *groupHandler) addMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.AddMember(r.Context(), chi.URLParam(r, "groupID"), req.Identifier, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.Invitation != nil {
		inv := toInvitationResponse(res.Invitation)
		writeJSON(w, http.StatusAccepted, addMemberResponse{Detail: "invitation sent", Invitation: &inv})
		return
	}
	member := toMemberResponse(*res.Member)
	writeJSON(w, http.StatusOK, addMemberResponse{Detail: "guest added", Member: &member})
}

func (h *groupHandler) changeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !decode(w, r, &req) {
		return
	}

	group, err := h.svc.ChangeMemberRole(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"), req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *groupHandler) removeMember(w http.ResponseWriter, r *http.Request) {
	group, err := h.svc.RemoveMember(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *groupHandler) leave(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LeaveGroup(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *groupHandler) invitations(w http.ResponseWriter, r *http.Request) {
	invs, err := h.svc.ListGroupInvitations(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvitationResponseList(invs))
}

func (h *groupHandler) balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.GetBalances(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toBalancesResponse(balances))
}

func (h *groupHandler) report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeError(w, r, errs.Newf(errs.ErrValidation, "unsupported report format %q", format))
		return
	}

	rng, err := report.ParseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := h.svc.Report(r.Context(), chi.URLParam(r, "groupID"), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, rep)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.csv"`, rep.GroupID))
	if err := report.WriteCSV(w, rep); err != nil {
		slog.Error("failed to write report", "group_id", rep.GroupID, "error", err)
	}
}
