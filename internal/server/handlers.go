package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lox/riichiscore/internal/match"
	"github.com/lox/riichiscore/internal/scoring"
)

// StartRequest starts a match.
type StartRequest struct {
	Names           []string       `json:"names" binding:"required"`
	GameMode        match.GameMode `json:"gameMode"`
	Enable30000Rule bool           `json:"enable30000Rule"`
}

// WinRequest records a ron or tsumo. Either ScoreResult or Han (and Fu
// below mangan) must be given. Advance also moves to the next hand.
type WinRequest struct {
	WinnerIndex int                  `json:"winnerIndex"`
	LoserIndex  *int                 `json:"loserIndex"`
	ScoreResult *scoring.ScoreResult `json:"scoreResult"`
	Han         int                  `json:"han"`
	Fu          int                  `json:"fu"`
	Advance     bool                 `json:"advance"`
}

// DrawRequest records an exhaustive draw.
type DrawRequest struct {
	TenpaiPlayers []int `json:"tenpaiPlayers"`
	Advance       bool  `json:"advance"`
}

// RiichiRequest declares riichi.
type RiichiRequest struct {
	PlayerIndex int `json:"playerIndex"`
}

// AdvanceRequest finishes the current hand.
type AdvanceRequest struct {
	DealerWon bool `json:"dealerWon"`
}

// MatchResponse is returned by every match endpoint.
type MatchResponse struct {
	Match     match.Snapshot      `json:"match"`
	Standings []match.Standing    `json:"standings"`
	Entry     *match.HistoryEntry `json:"entry,omitempty"`
	Accepted  *bool               `json:"accepted,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respond(c *gin.Context, entry *match.HistoryEntry, accepted *bool) {
	snap := s.machine.Snapshot()
	c.JSON(http.StatusOK, MatchResponse{
		Match:     snap,
		Standings: snap.Standings(),
		Entry:     entry,
		Accepted:  accepted,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrBusy),
		errors.Is(err, match.ErrNotStarted),
		errors.Is(err, match.ErrMatchEnded):
		return http.StatusConflict
	case errors.Is(err, match.ErrApplier),
		errors.Is(err, scoring.ErrEngine):
		return http.StatusBadGateway
	case errors.Is(err, match.ErrInvalidSeat),
		errors.Is(err, match.ErrSameSeat),
		errors.Is(err, match.ErrInvalidTenpai),
		errors.Is(err, match.ErrUncomputable),
		errors.Is(err, match.ErrPlayerCount),
		errors.Is(err, match.ErrLoserRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.hub.Count()})
}

func (s *Server) handleGetMatch(c *gin.Context) {
	s.respond(c, nil, nil)
}

func (s *Server) handleStart(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	mode, err := match.ParseGameMode(string(req.GameMode))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.machine.Start(req.Names, match.StartOptions{Mode: mode, Enable30000Rule: req.Enable30000Rule}); err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, nil, nil)
}

func (s *Server) handleRon(c *gin.Context) {
	s.handleWin(c, false)
}

func (s *Server) handleTsumo(c *gin.Context) {
	s.handleWin(c, true)
}

func (s *Server) handleWin(c *gin.Context, isTsumo bool) {
	var req WinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if !isTsumo && req.LoserIndex == nil {
		s.fail(c, match.ErrLoserRequired)
		return
	}

	var res scoring.ScoreResult
	if req.ScoreResult != nil {
		res = *req.ScoreResult
	} else {
		var err error
		res, err = s.machine.Snapshot().TableResult(s.calc, isTsumo, req.WinnerIndex, req.Han, req.Fu)
		if err != nil {
			s.fail(c, err)
			return
		}
	}

	var (
		entry match.HistoryEntry
		err   error
	)
	ctx := c.Request.Context()
	switch {
	case req.Advance:
		rec := match.WinRecord{WinnerIndex: req.WinnerIndex, IsTsumo: isTsumo, Result: res}
		if req.LoserIndex != nil {
			rec.LoserIndex = *req.LoserIndex
		}
		entry, err = s.machine.RecordWin(ctx, rec)
	case isTsumo:
		entry, err = s.machine.ApplyTsumo(ctx, req.WinnerIndex, res)
	default:
		entry, err = s.machine.ApplyRon(ctx, req.WinnerIndex, *req.LoserIndex, res)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, &entry, nil)
}

func (s *Server) handleDraw(c *gin.Context) {
	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var (
		entry match.HistoryEntry
		err   error
	)
	if req.Advance {
		entry, err = s.machine.RecordDraw(req.TenpaiPlayers)
	} else {
		entry, err = s.machine.ApplyDraw(req.TenpaiPlayers)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, &entry, nil)
}

func (s *Server) handleRiichi(c *gin.Context) {
	var req RiichiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	ok, err := s.machine.AddRiichiStick(req.PlayerIndex)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, nil, &ok)
}

func (s *Server) handleAdvance(c *gin.Context) {
	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.machine.AdvanceRound(req.DealerWon); err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, nil, nil)
}

func (s *Server) handleUndo(c *gin.Context) {
	ok, err := s.machine.Undo()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, nil, &ok)
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.machine.Reset(); err != nil {
		s.fail(c, err)
		return
	}
	s.respond(c, nil, nil)
}

// handleLookup answers GET /api/v1/lookup?han=3&fu=40&tsumo=false&dealer=true.
func (s *Server) handleLookup(c *gin.Context) {
	han, err := strconv.Atoi(c.Query("han"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "han must be an integer"})
		return
	}
	fu := 0
	if v := c.Query("fu"); v != "" {
		if fu, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "fu must be an integer"})
			return
		}
	}
	isTsumo := c.Query("tsumo") == "true"
	isDealer := c.Query("dealer") == "true"

	cost, ok := s.calc.Lookup(isTsumo, han, fu, isDealer)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: match.ErrUncomputable.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"han":   han,
		"fu":    fu,
		"tsumo": isTsumo,
		"cost":  cost,
		"limit": scoring.LimitName(han),
	})
}

// handleApplyScore is the reference apply-score collaborator.
func (s *Server) handleApplyScore(c *gin.Context) {
	var req match.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	resp, err := match.LocalApplier{}.Apply(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
