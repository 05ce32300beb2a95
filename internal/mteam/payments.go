package mteam

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auth "kyri56xcaesar/teamup/internal/authmw"
	"kyri56xcaesar/teamup/internal/ledger"
	"kyri56xcaesar/teamup/internal/mteam/apierr"
)

func (s *Server) createOrderHandler(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadRequest)
		return
	}

	uid, _ := auth.UserID(c)
	record, err := s.ledger.RequestPayment(c.Request.Context(), req.TeamID, uid)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse{
		OrderID:  record.Reference,
		Amount:   record.Amount,
		Currency: record.Currency,
	})
}

func (s *Server) verifyPaymentHandler(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadRequest)
		return
	}

	uid, _ := auth.UserID(c)
	team, err := s.ledger.SettlePayment(c.Request.Context(), req.TeamID, uid, req.OrderID)
	if errors.Is(err, ledger.ErrAlreadySettled) {
		c.JSON(http.StatusOK, gin.H{"message": "Payment already settled"})
		return
	}
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, teamResponse{Message: "Payment verified successfully", Team: team})
}

func (s *Server) paymentHistoryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	uid, _ := auth.UserID(c)
	history, err := s.payments.History(c.Request.Context(), uid, limit)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": history})
}
