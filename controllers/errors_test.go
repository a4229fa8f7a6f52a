package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/madickblog/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		read   bool
		status int
		body   string
	}{
		{"missing field", models.NewMissingFieldError("title"), false, http.StatusBadRequest, `{"code":40010,"message":"title is required","data":{"field":"title"}}`},
		{"invalid field", models.NewInvalidFieldError("category", "unknown category"), false, http.StatusBadRequest, `{"code":40011,"message":"unknown category","data":{"field":"category"}}`},
		{"unauthorized", models.NewUnauthorizedError("authentication required"), false, http.StatusUnauthorized, `{"code":40110,"message":"authentication required"}`},
		{"forbidden", models.NewForbiddenError("not the author"), false, http.StatusForbidden, `{"code":40301,"message":"not the author"}`},
		{"post not found", models.NewNotFoundError(models.ResourcePost), false, http.StatusNotFound, `{"code":40401,"message":"post not found"}`},
		{"comment not found", models.NewNotFoundError(models.ResourceComment), true, http.StatusNotFound, `{"code":40402,"message":"comment not found"}`},
		{"partial failure", models.NewPartialFailureError("half done", errors.New("boom")), false, http.StatusInternalServerError, `{"code":50030,"message":"half done"}`},
		{"write internal", models.NewInternalError("failed", errors.New("boom")), false, http.StatusInternalServerError, `{"code":50020,"message":"failed"}`},
		{"read internal", models.NewInternalError("store unavailable", errors.New("boom")), true, http.StatusServiceUnavailable, `{"code":50300,"message":"store unavailable"}`},
		{"plain error", errors.New("boom"), false, http.StatusInternalServerError, `{"code":50020,"message":"internal error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/posts/1", nil)
			if tc.read {
				respondReadError(ctx, tc.err)
			} else {
				respondError(ctx, tc.err)
			}
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestNoUsableUserCarriesReason(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/api/v1/posts", nil)

	respondError(ctx, models.NewNoUsableUserError())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40403`)
	assert.Contains(t, w.Body.String(), `"reason":"`+models.ReasonNoUsableUser+`"`)
}
