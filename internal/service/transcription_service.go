package service

import (
	"bytes"
	"career_coach_backend/internal/config"
	"career_coach_backend/internal/util"
	"career_coach_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// TranscriptionService 调用 Whisper 兼容接口将音频转为文本
type TranscriptionService struct {
	config config.TranscriptionConfig
	client *http.Client
}

func NewTranscriptionService(cfg config.TranscriptionConfig) *TranscriptionService {
	return &TranscriptionService{
		config: cfg,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe 转写音频。字节数超限或内容为空直接拒绝，不发起远程调用
func (s *TranscriptionService) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: 音频内容为空", util.ErrInvalidInput)
	}
	if s.config.MaxAudioBytes > 0 && int64(len(audio)) > s.config.MaxAudioBytes {
		return "", fmt.Errorf("%w: 音频超过大小限制 %d 字节", util.ErrInvalidInput, s.config.MaxAudioBytes)
	}
	if err := s.checkDuration(audio, filename); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	if err := writer.WriteField("model", s.config.Model); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: 转写服务返回 %d: %s", util.ErrTranscription, resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrTranscription, err)
	}
	return result.Text, nil
}

// checkDuration 用 ffprobe 探测时长，探测失败时放行，由远端服务兜底
func (s *TranscriptionService) checkDuration(audio []byte, filename string) error {
	if s.config.MaxDurationS <= 0 {
		return nil
	}

	tmp, err := os.CreateTemp("", "transcribe-*"+filepath.Ext(filename))
	if err != nil {
		return nil
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return nil
	}
	tmp.Close()

	info, err := util.GetAudioInfo(tmp.Name())
	if err != nil {
		logger.Log.Warn("音频时长探测失败", zap.String("file", filename), zap.Error(err))
		return nil
	}
	if info.Duration > float64(s.config.MaxDurationS) {
		return fmt.Errorf("%w: 音频时长 %.0f 秒超过限制 %d 秒", util.ErrInvalidInput, info.Duration, s.config.MaxDurationS)
	}
	return nil
}
