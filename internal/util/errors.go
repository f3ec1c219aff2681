package util

import "errors"

var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")

	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("resource not found")

	// 面试会话错误
	ErrSessionNotActive   = errors.New("interview session already finished")
	ErrInvalidIndex       = errors.New("question index out of range")
	ErrInvalidInput       = errors.New("invalid audio payload")
	ErrTranscription      = errors.New("transcription failed")
	ErrAIUnavailable      = errors.New("AI service unavailable")
	ErrQuestionGeneration = errors.New("question generation failed")
)
