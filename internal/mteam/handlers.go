package mteam

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	auth "kyri56xcaesar/teamup/internal/authmw"
	"kyri56xcaesar/teamup/internal/ledger"
	"kyri56xcaesar/teamup/internal/mteam/apierr"
)

func (s *Server) createTeamHandler(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("failed to bind input", "error", err)
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.BadRequest)
		return
	}

	uid, _ := auth.UserID(c)
	team, err := s.ledger.Create(c.Request.Context(), ledger.CreateTeamInput{
		Name:         req.Name,
		Sport:        req.Sport,
		Location:     req.Location,
		Time:         req.Time,
		TotalSlots:   req.TotalSlots,
		PricePerSlot: *req.PricePerSlot,
		CreatorID:    uid,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, teamResponse{Message: "Team created", Team: team})
}

func (s *Server) listTeamsHandler(c *gin.Context) {
	filter := ledger.TeamFilter{
		Sport:    strings.TrimSpace(c.Query("sport")),
		Location: strings.TrimSpace(c.Query("location")),
		Order:    c.DefaultQuery("order", "time_asc"),
	}

	switch filter.Order {
	case "time_asc", "time_desc", "created_desc", "price_asc":
	default:
		apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.APIError{Code: "VALIDATION", Message: "unknown order"})
		return
	}

	if d := c.Query("date"); d != "" {
		day, err := time.Parse(time.DateOnly, d)
		if err != nil {
			apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.APIError{Code: "VALIDATION", Message: "date must be YYYY-MM-DD"})
			return
		}
		filter.Date = &day
	}

	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			apierr.WriteApiErrJSON(c, http.StatusBadRequest, apierr.APIError{Code: "VALIDATION", Message: "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	teams, err := s.ledger.List(c.Request.Context(), filter)
	if err != nil {
		s.handleError(c, err)
		return
	}
	views, err := s.teamViews(c.Request.Context(), teams)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"teams": views})
}

func (s *Server) getTeamHandler(c *gin.Context) {
	team, err := s.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	views, err := s.teamViews(c.Request.Context(), []ledger.Team{*team})
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"team": views[0]})
}

func (s *Server) joinTeamHandler(c *gin.Context) {
	uid, _ := auth.UserID(c)
	team, err := s.ledger.Join(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, teamResponse{Message: "Joined team", Team: team})
}

func (s *Server) leaveTeamHandler(c *gin.Context) {
	uid, _ := auth.UserID(c)
	team, err := s.ledger.Leave(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, teamResponse{Message: "Left team", Team: team})
}

func (s *Server) cancelTeamHandler(c *gin.Context) {
	uid, _ := auth.UserID(c)
	team, err := s.ledger.Cancel(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, teamResponse{Message: "Team cancelled", Team: team})
}

// teamViews resolves every creator and player id in one lookup. Users that
// no longer exist are shown by id only.
func (s *Server) teamViews(ctx context.Context, teams []ledger.Team) ([]teamView, error) {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, t := range teams {
		add(t.CreatorID)
		for _, m := range t.Roster {
			add(m.UserID)
		}
	}

	users, err := s.accounts.Users(ctx, ids)
	if err != nil {
		return nil, err
	}
	ref := func(id string) userRef {
		u := users[id]
		return userRef{ID: id, Name: u.Name, Email: u.Email}
	}

	views := make([]teamView, 0, len(teams))
	for _, t := range teams {
		players := make([]playerView, 0, len(t.Roster))
		for _, m := range t.Roster {
			players = append(players, playerView{
				User:          ref(m.UserID),
				JoinedAt:      m.JoinedAt,
				PaymentStatus: m.PaymentStatus,
			})
		}
		views = append(views, teamView{
			ID:             t.ID,
			Name:           t.Name,
			Sport:          t.Sport,
			Location:       t.Location,
			Time:           t.Time,
			TotalSlots:     t.TotalSlots,
			FilledSlots:    t.FilledSlots,
			AvailableSlots: t.AvailableSlots(),
			PricePerSlot:   t.PricePerSlot,
			Creator:        ref(t.CreatorID),
			Players:        players,
			Status:         t.Status,
			CreatedAt:      t.CreatedAt,
		})
	}
	return views, nil
}

// handleError logs unmapped failures; mapped ones are expected outcomes.
func (s *Server) handleError(c *gin.Context, err error) {
	if _, _, ok := apierr.Map(err); !ok {
		s.logger.Errorw("request failed", "path", c.FullPath(), "error", err)
	}
	apierr.Handle(c, err)
}
