package mteam

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kyri56xcaesar/teamup/internal/account"
	auth "kyri56xcaesar/teamup/internal/authmw"
	"kyri56xcaesar/teamup/internal/mteam/apierr"
)

func (s *Server) signupHandler(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("failed to bind signup", "error", err)
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadRequest)
		return
	}

	u, token, err := s.accounts.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{Message: "User created", Token: token, User: toUserResponse(u)})
}

func (s *Server) loginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadRequest)
		return
	}

	u, token, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{Message: "Logged in", Token: token, User: toUserResponse(u)})
}

func (s *Server) profileHandler(c *gin.Context) {
	uid, _ := auth.UserID(c)
	p, err := s.accounts.Profile(c.Request.Context(), uid)
	if err != nil {
		s.handleError(c, err)
		return
	}

	var resp profileResponse
	resp.User.userResponse = toUserResponse(&p.User)
	resp.User.Teams = p.Teams
	c.JSON(http.StatusOK, resp)
}

func toUserResponse(u *account.User) userResponse {
	return userResponse{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Balance: u.Balance,
	}
}
