package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"voicescribe-go/internal/audio"
	"voicescribe-go/internal/config"
	"voicescribe-go/internal/format"
	"voicescribe-go/internal/logger"
	"voicescribe-go/internal/pipeline"
	"voicescribe-go/internal/ratelimit"
	"voicescribe-go/internal/report"
	"voicescribe-go/internal/transcription"
)

const maxUploadBytes = 64 << 20

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voicescribe-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	transcoder, err := audio.NewTranscoder()
	if err != nil {
		log.WithError(err).Fatal("temp directory unavailable")
	}
	limiter := ratelimit.New(cfg.ConcurrentRequests)
	client := transcription.NewClient(cfg, limiter)
	orch := pipeline.New(cfg, transcoder, client)
	formatter := format.New(cfg)

	go cleanupLoop(transcoder, cfg.TempMaxAge())

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	// transcribe endpoint: multipart upload of one voice message
	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "transcribe")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		reqLog.Info("transcribe request received")

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("audio")
		if err != nil {
			reqLog.WithError(err).Warn("missing audio part")
			http.Error(w, "missing audio part", http.StatusBadRequest)
			return
		}
		defer file.Close()

		att := attachmentFromRequest(r, header)
		ownerID, _ := strconv.ParseInt(r.FormValue("owner_id"), 10, 64)

		outcome := orch.Process(r.Context(), att, ownerID, pipeline.Hooks{
			Fetch: func(ctx context.Context, id string, w io.Writer) error {
				_, err := io.Copy(w, file)
				return err
			},
		})

		resp := map[string]interface{}{
			"outcome": outcome,
			"message": formatter.Render(outcome, r.URL.Query().Get("extras") == "true"),
		}
		if words := r.URL.Query().Get("words"); words != "" && !outcome.Failed() {
			matches := client.SearchWords(r.Context(), outcome, strings.Split(words, ","))
			resp["word_search"] = matches
			resp["word_search_message"] = formatter.RenderSearchResults(matches)
		}

		w.Header().Set("Content-Type", "application/json")
		if outcome.Failed() {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		writeJSON(w, reqLog, resp)
	})

	// stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r)
		reqLog.Info("stats requested")
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, reqLog, orch.Stats())
	})

	// report endpoint: dump stats + recent outcomes to an xlsx workbook
	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "report")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := cfg.ReportPath
		if p := r.URL.Query().Get("path"); p != "" {
			path = p
		}
		if err := report.Write(path, orch.Stats(), orch.Recent()); err != nil {
			reqLog.WithError(err).Error("report write failed")
			http.Error(w, "report write failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, reqLog, map[string]string{"path": path})
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func attachmentFromRequest(r *http.Request, header *multipart.FileHeader) audio.Attachment {
	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)
	mime := r.FormValue("mime_type")
	if mime == "" {
		mime = header.Header.Get("Content-Type")
	}
	id := r.FormValue("attachment_id")
	if id == "" {
		id = header.Filename
	}
	return audio.Attachment{
		ID:              id,
		MimeType:        mime,
		DurationSeconds: duration,
		SizeBytes:       header.Size,
	}
}

func writeJSON(w http.ResponseWriter, log *logrus.Entry, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

// cleanupLoop periodically sweeps stale temp audio files.
func cleanupLoop(t *audio.Transcoder, maxAge time.Duration) {
	log := logger.Component("cleanup")
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if n := t.CleanupStale(maxAge); n > 0 {
			log.WithField("removed", n).Info("stale temp files removed")
		}
	}
}
