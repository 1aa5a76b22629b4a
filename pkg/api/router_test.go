package api

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterRegistersChatSessionRoutes(t *testing.T) {
	router := NewRouter(Deps{Logger: zap.NewNop()})

	routes := make(map[string]bool)
	for _, r := range router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	assert.True(t, routes["POST /chat"])
	assert.True(t, routes["GET /chat_sessions"])
	assert.True(t, routes["GET /chat_sessions/:session_id/messages"])
	assert.True(t, routes["DELETE /chat_sessions/:session_id"])
}
