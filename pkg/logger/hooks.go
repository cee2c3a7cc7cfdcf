package logger

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

// entryLevel recovers our LogLevel from a logrus entry
func entryLevel(entry *logrus.Entry) LogLevel {
	if lvl, ok := entry.Data[fieldLevel].(LogLevel); ok {
		return lvl
	}
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}

func entryPrefix(entry *logrus.Entry) string {
	if p, ok := entry.Data[fieldPrefix].(string); ok {
		return p
	}
	return "-"
}

// lineFormatter renders "[time] [LEVEL] [prefix]: message"
type lineFormatter struct {
	colors bool
}

// Format implements logrus.Formatter
func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := entryLevel(entry)
	name := level.String()
	if f.colors {
		name = level.Color() + name + colorReset
	}

	line := fmt.Sprintf("[%s] [%s] [%s]: %s\n",
		entry.Time.Format(timestampFormat),
		name,
		entryPrefix(entry),
		entry.Message,
	)
	return []byte(line), nil
}

// fileHook appends plain lines to combined.log, and errors to error.log as well
type fileHook struct {
	formatter *lineFormatter
	combined  *os.File
	errors    *os.File
	mu        sync.Mutex
}

func newFileHook(dir string) (*fileHook, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	combined, err := os.OpenFile(filepath.Join(dir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	errorsFile, err := os.OpenFile(filepath.Join(dir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		combined.Close()
		return nil, err
	}

	return &fileHook{
		formatter: &lineFormatter{colors: false},
		combined:  combined,
		errors:    errorsFile,
	}, nil
}

// Levels implements logrus.Hook
func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook
func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.combined != nil {
		if _, err := h.combined.Write(line); err != nil {
			return err
		}
	}
	if entryLevel(entry) <= LevelError && h.errors != nil {
		if _, err := h.errors.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// Close closes both files
func (h *fileHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.combined != nil {
		h.combined.Close()
		h.combined = nil
	}
	if h.errors != nil {
		h.errors.Close()
		h.errors = nil
	}
}

// webhookHook forwards entries to Discord webhooks: errors to one, the rest to another
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
}

func newWebhookHook(errorURL, logsURL string) *webhookHook {
	return &webhookHook{
		errorURL: errorURL,
		logsURL:  logsURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Levels implements logrus.Hook
func (h *webhookHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook. Delivery happens in the background.
func (h *webhookHook) Fire(entry *logrus.Entry) error {
	level := entryLevel(entry)
	url := h.targetFor(level)
	if url == "" {
		return nil
	}

	body, err := webhookPayload(level, entryPrefix(entry), entry.Message, entry.Time)
	if err != nil {
		return err
	}

	go h.post(url, body)
	return nil
}

func (h *webhookHook) targetFor(level LogLevel) string {
	if level <= LevelError {
		return h.errorURL
	}
	return h.logsURL
}

func (h *webhookHook) post(url string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// webhookPayload builds the Discord embed body for a log line
func webhookPayload(level LogLevel, prefix, message string, at time.Time) ([]byte, error) {
	embed := map[string]interface{}{
		"title":       fmt.Sprintf("[%s] %s", level.String(), prefix),
		"description": fmt.Sprintf("```%s```", message),
		"color":       level.DiscordColor(),
		"timestamp":   at.Format(time.RFC3339),
		"footer": map[string]string{
			"text": "💫 Developed by PancyStudio | UselessBot Go",
		},
	}

	return json.Marshal(map[string]interface{}{
		"embeds": []interface{}{embed},
	})
}
