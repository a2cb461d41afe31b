package httpapi

import (
	"time"

	"github.com/mmynk/kanak/internal/calculator"
	"github.com/mmynk/kanak/internal/models"
	"github.com/mmynk/kanak/internal/service"
)

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type memberResponse struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	JoinedAt time.Time   `json:"joinedAt"`
	IsGuest  bool        `json:"isGuest"`
}

type groupResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Members     []memberResponse `json:"members"`
	CreatedAt   time.Time        `json:"createdAt"`
	CreatedBy   string           `json:"createdBy"`
}

type splitResponse struct {
	UserID     string   `json:"userId"`
	Amount     float64  `json:"amount"`
	Percentage *float64 `json:"percentage,omitempty"`
}

type transactionResponse struct {
	ID          string                 `json:"id"`
	GroupID     string                 `json:"groupId"`
	Type        models.TransactionType `json:"type"`
	Amount      float64                `json:"amount"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Date        time.Time              `json:"date"`
	CreatedBy   string                 `json:"createdBy"`
	CreatedByID string                 `json:"createdById"`
	PayerID     string                 `json:"payerId"`
	SplitMode   models.SplitMode       `json:"splitMode"`
	Splits      []splitResponse        `json:"splits"`
}

type invitationResponse struct {
	ID           string                  `json:"id"`
	GroupID      string                  `json:"groupId"`
	GroupName    string                  `json:"groupName"`
	InviterID    string                  `json:"inviterId"`
	InviterName  string                  `json:"inviterName"`
	InviteeID    string                  `json:"inviteeId"`
	InviteeEmail string                  `json:"inviteeEmail"`
	Role         models.Role             `json:"role"`
	Status       models.InvitationStatus `json:"status"`
	CreatedAt    time.Time               `json:"createdAt"`
}

type addMemberResponse struct {
	Detail     string              `json:"detail"`
	Member     *memberResponse     `json:"member,omitempty"`
	Invitation *invitationResponse `json:"invitation,omitempty"`
}

type memberStatsResponse struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username"`
	Paid     float64 `json:"paid"`
	Received float64 `json:"received"`
	Balance  float64 `json:"balance"`
}

type settlementResponse struct {
	models.Transfer
	Text string `json:"text"`
}

type balancesResponse struct {
	Members     []memberStatsResponse `json:"members"`
	Settlements []settlementResponse  `json:"settlements"`
}

func unix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: unix(u.CreatedAt),
	}
}

func toMemberResponse(m models.Member) memberResponse {
	return memberResponse{
		UserID:   m.UserID,
		Username: m.Username,
		Role:     m.Role,
		JoinedAt: unix(m.JoinedAt),
		IsGuest:  m.Role == models.RoleGuest,
	}
}

func toGroupResponse(g *models.Group) groupResponse {
	resp := groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Members:     make([]memberResponse, 0, len(g.Members)),
		CreatedAt:   unix(g.CreatedAt),
		CreatedBy:   g.CreatedBy,
	}
	for _, m := range g.Members {
		resp.Members = append(resp.Members, toMemberResponse(m))
	}
	return resp
}

func toGroupResponseList(groups []*models.Group) []groupResponse {
	resp := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toGroupResponse(g))
	}
	return resp
}

func toTransactionResponse(t *models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID,
		GroupID:     t.GroupID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Date:        unix(t.Date),
		CreatedBy:   t.CreatedBy,
		CreatedByID: t.CreatedByID,
		PayerID:     t.Payer(),
		SplitMode:   t.SplitMode,
		Splits:      make([]splitResponse, 0, len(t.Splits)),
	}
	for _, s := range t.Splits {
		resp.Splits = append(resp.Splits, splitResponse{
			UserID:     s.UserID,
			Amount:     s.Amount,
			Percentage: s.Percentage,
		})
	}
	return resp
}

func toTransactionResponseList(txs []*models.Transaction) []transactionResponse {
	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	return resp
}

func toInvitationResponse(inv *models.Invitation) invitationResponse {
	return invitationResponse{
		ID:           inv.ID,
		GroupID:      inv.GroupID,
		GroupName:    inv.GroupName,
		InviterID:    inv.InviterID,
		InviterName:  inv.InviterName,
		InviteeID:    inv.InviteeID,
		InviteeEmail: inv.InviteeEmail,
		Role:         inv.Role,
		Status:       inv.Status,
		CreatedAt:    unix(inv.CreatedAt),
	}
}

func toInvitationResponseList(invs []*models.Invitation) []invitationResponse {
	resp := make([]invitationResponse, 0, len(invs))
	for _, inv := range invs {
		resp = append(resp, toInvitationResponse(inv))
	}
	return resp
}

func toBalancesResponse(b *service.Balances) balancesResponse {
	resp := balancesResponse{
		Members:     make([]memberStatsResponse, 0, len(b.Members)),
		Settlements: make([]settlementResponse, 0, len(b.Settlements)),
	}
	for _, s := range b.Members {
		resp.Members = append(resp.Members, toMemberStatsResponse(s))
	}
	for _, t := range b.Settlements {
		resp.Settlements = append(resp.Settlements, settlementResponse{Transfer: t, Text: t.String()})
	}
	return resp
}

func toMemberStatsResponse(s calculator.MemberStats) memberStatsResponse {
	return memberStatsResponse{
		UserID:   s.UserID,
		Username: s.Username,
		Paid:     s.Paid,
		Received: s.Received,
		Balance:  s.Balance,
	}
}
