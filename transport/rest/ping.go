package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (that *Server) handlePing(ctx *gin.Context) {
	ctx.String(http.StatusOK, "pong")
}
