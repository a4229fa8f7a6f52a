package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/madickblog/utils"
)

const ContextRequestIDKey = "request_id"

// RequestID keeps an incoming X-Request-ID or assigns a new uuid, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(utils.RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.Set(ContextRequestIDKey, id)
		ctx.Header(utils.RequestIDHeader, id)
		ctx.Next()
	}
}
