package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatsController отдает счетчики хранилища и заполненность пространства коротких кодов.
type StatsController struct {
	stats StatsProvider
}

func NewStatsController(stats StatsProvider) *StatsController {
	return &StatsController{stats: stats}
}

// Stats обрабатывает GET /api/stats.
func (c *StatsController) Stats(ctx *gin.Context) {
	reqCtx, cancel := requestContext(ctx, DefaultRequestTimeout)
	defer cancel()

	stats, err := c.stats.Stats(reqCtx)
	if err != nil {
		abortWithError(ctx, err, ErrRecordNotFound.Error(), "Failed to retrieve statistics")
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
