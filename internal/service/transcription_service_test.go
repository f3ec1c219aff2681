package service

import (
	"career_coach_backend/internal/config"
	"career_coach_backend/internal/util"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribeSuccess(t *testing.T) {
	var gotAuth, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "我做过三年后端开发。"}`))
	}))
	defer srv.Close()

	svc := NewTranscriptionService(config.TranscriptionConfig{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		Model:         "whisper-1",
		MaxAudioBytes: 1 << 20,
	})

	text, err := svc.Transcribe(context.Background(), []byte("fake-audio-bytes"), "answer.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "我做过三年后端开发。" {
		t.Fatalf("unexpected transcript %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Fatalf("unexpected model %q", gotModel)
	}
}

func TestTranscribeRejectsOversizedAudio(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	svc := NewTranscriptionService(config.TranscriptionConfig{
		BaseURL:       srv.URL,
		MaxAudioBytes: 8,
	})

	_, err := svc.Transcribe(context.Background(), []byte("123456789"), "a.mp3")
	if !errors.Is(err, util.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if hit {
		t.Fatal("oversized audio must be rejected before any remote call")
	}
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	svc := NewTranscriptionService(config.TranscriptionConfig{BaseURL: "http://127.0.0.1:0"})
	if _, err := svc.Transcribe(context.Background(), nil, "a.wav"); !errors.Is(err, util.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTranscribeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "bad audio"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	svc := NewTranscriptionService(config.TranscriptionConfig{BaseURL: srv.URL, MaxAudioBytes: 1 << 20})
	_, err := svc.Transcribe(context.Background(), []byte("noise"), "a.ogg")
	if !errors.Is(err, util.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestTranscribeUnreachableUpstream(t *testing.T) {
	svc := NewTranscriptionService(config.TranscriptionConfig{BaseURL: "http://127.0.0.1:1", MaxAudioBytes: 1 << 20})
	_, err := svc.Transcribe(context.Background(), []byte("noise"), "a.wav")
	if !errors.Is(err, util.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}
