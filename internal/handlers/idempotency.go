package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/apperrors"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/idempotency"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	codeRequestInProgress = "REQUEST_IN_PROGRESS"
	codeKeyReused         = "IDEMPOTENCY_KEY_REUSED"

	// responses above this are not stored; a replay returns the status only
	maxStoredResponse = 64 << 10
)

// recordingWriter keeps a copy of the response body for replays.
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotent makes a mutating route safe to retry with the same Idempotency-Key header.
// Requests without the header pass through.
//
// A completed key replays the stored response. A key still in progress gets 409
// REQUEST_IN_PROGRESS. A key whose first attempt failed with a 5xx may run again.
func Idempotent(store idempotencyStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		recordKey := "request#" + key

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, apperrors.Validation("unreadable request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)

		created, err := store.CreateIfNotExists(ctx, recordKey, hash)
		if err != nil {
			logger.Error("idempotency create failed", zap.String("key", key), zap.Error(err))
			writeError(c, apperrors.Internal(err))
			return
		}
		if !created && !resume(c, store, recordKey, hash, logger) {
			return
		}

		// the outcome must be stored even if the caller went away
		done := context.WithoutCancel(ctx)
		defer func() {
			if r := recover(); r != nil {
				if err := store.MarkFailed(done, recordKey, fmt.Sprintf("panic: %v", r)); err != nil {
					logger.Error("idempotency mark failed", zap.String("key", key), zap.Error(err))
				}
				panic(r)
			}
		}()

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := store.MarkFailed(done, recordKey, fmt.Sprintf("status %d", status)); err != nil {
				logger.Error("idempotency mark failed", zap.String("key", key), zap.Error(err))
			}
			return
		}
		stored := w.body.String()
		if len(stored) > maxStoredResponse {
			stored = ""
		}
		if err := store.MarkDone(done, recordKey, stored, status); err != nil {
			logger.Error("idempotency mark done", zap.String("key", key), zap.Error(err))
		}
	}
}

// resume decides what to do with a key that already exists. It reports whether the handler
// should run; otherwise the response has been written.
func resume(c *gin.Context, store idempotencyStore, key, hash string, logger *zap.Logger) bool {
	ctx := c.Request.Context()
	rec, err := store.Get(ctx, key)
	if err != nil {
		writeError(c, apperrors.Internal(err))
		return false
	}
	if rec == nil {
		// expired between the put and the read
		writeError(c, inProgress())
		return false
	}
	if rec.RequestHash != hash {
		writeError(c, &apperrors.AppError{
			Code:       codeKeyReused,
			Message:    "idempotency key was used for a different request",
			HTTPStatus: http.StatusUnprocessableEntity,
		})
		return false
	}

	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody == "" {
			c.AbortWithStatus(rec.ResponseStatus)
			return false
		}
		c.Header("Idempotent-Replayed", "true")
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
		return false
	case idempotency.StatusFailed:
		ok, err := store.Reclaim(ctx, key)
		if err != nil {
			writeError(c, apperrors.Internal(err))
			return false
		}
		if !ok {
			writeError(c, inProgress())
			return false
		}
		logger.Info("retrying failed request", zap.String("key", key))
		return true
	default:
		writeError(c, inProgress())
		return false
	}
}

func inProgress() *apperrors.AppError {
	return &apperrors.AppError{
		Code:       codeRequestInProgress,
		Message:    "a request with this idempotency key is still in progress",
		HTTPStatus: http.StatusConflict,
	}
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
