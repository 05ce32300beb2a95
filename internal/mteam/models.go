package mteam

import (
	"time"

	"kyri56xcaesar/teamup/internal/ledger"
)

type CreateTeamRequest struct {
	Name         string    `json:"name" binding:"required,min=2,max=64"`
	Sport        string    `json:"sport" binding:"required,max=64"`
	Location     string    `json:"location" binding:"required,max=128"`
	Time         time.Time `json:"time" binding:"required"`
	TotalSlots   int       `json:"totalSlots" binding:"required,min=2,max=1000"`
	PricePerSlot *int64    `json:"pricePerSlot" binding:"required,min=0"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Name     string `json:"name" binding:"required,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateOrderRequest struct {
	TeamID string `json:"teamId" binding:"required"`
}

type VerifyPaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	TeamID  string `json:"teamId" binding:"required"`
}

type teamResponse struct {
	Message string       `json:"message"`
	Team    *ledger.Team `json:"team"`
}

type userRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type playerView struct {
	User          userRef              `json:"user"`
	JoinedAt      time.Time            `json:"joinedAt"`
	PaymentStatus ledger.PaymentStatus `json:"paymentStatus"`
}

// teamView is a team as the catalog shows it, with creator and players
// resolved to names.
type teamView struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Sport          string        `json:"sport"`
	Location       string        `json:"location"`
	Time           time.Time     `json:"time"`
	TotalSlots     int           `json:"totalSlots"`
	FilledSlots    int           `json:"filledSlots"`
	AvailableSlots int           `json:"availableSlots"`
	PricePerSlot   int64         `json:"pricePerSlot"`
	Creator        userRef       `json:"creator"`
	Players        []playerView  `json:"players"`
	Status         ledger.Status `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
}

type orderResponse struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

type profileResponse struct {
	User struct {
		userResponse
		Teams []ledger.Team `json:"teams"`
	} `json:"user"`
}
