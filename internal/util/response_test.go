package util

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFromErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: 领域不能为空", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: 题号 99", ErrInvalidIndex), http.StatusBadRequest},
		{fmt.Errorf("%w: 音频为空", ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: 会话 x", ErrPermissionDenied), http.StatusForbidden},
		{fmt.Errorf("%w: 会话 x", ErrNotFound), http.StatusNotFound},
		{ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: 会话 x", ErrSessionNotActive), http.StatusConflict},
		{fmt.Errorf("%w: 上游 500", ErrTranscription), http.StatusBadGateway},
		{fmt.Errorf("%w: 上游超时", ErrAIUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: 领域 x", ErrQuestionGeneration), http.StatusServiceUnavailable},
		{fmt.Errorf("数据库抽风"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		FromError(c, tt.err)
		if w.Code != tt.code {
			t.Errorf("FromError(%v) wrote %d, want %d", tt.err, w.Code, tt.code)
		}
	}
}
