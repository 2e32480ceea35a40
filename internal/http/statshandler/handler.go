package statshandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"strangerchat/internal/chat/session"
)

type Handler struct {
	dispatcher *session.Dispatcher
}

func New(d *session.Dispatcher) *Handler { return &Handler{dispatcher: d} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/stats", h.stats)
}

// @Summary		Liveness probe
// @Description	Reports that the process is up and serving.
// @Tags			Ops
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// @Summary		Live counters
// @Description	Returns connected users, active rooms, queued waiters, and dropped-intent totals.
// @Tags			Ops
// @Success		200	{object}	session.Stats
// @Router			/stats [get]
func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.Snapshot())
}
