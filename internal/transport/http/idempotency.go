package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	idempotencyKeyHeader  = "Idempotency-Key"
	idempotencyRecordTTL  = 24 * time.Hour
	idempotencyMaxBodyLen = 1 << 20
)

// responseRecorder перехватывает тело и статус ответа для сохранения
// в idempotency-записи.
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

// withIdempotency защищает POST-операцию от повторной доставки по заголовку
// Idempotency-Key. Без заголовка запрос проходит как обычно. Повтор с тем же
// ключом и телом получает сохранённый ответ; с другим телом — отказ.
func (s *Server) withIdempotency(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyKeyHeader)
		if key == "" || s.deps.Idempotency == nil {
			handler(c)
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, idempotencyMaxBodyLen))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		_, err = s.deps.Idempotency.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyRecordTTL))
		if err != nil {
			s.replayOrReject(c, key, err)
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		handler(c)

		status := recorder.Status()
		responseBody := recorder.body.Bytes()
		if status >= http.StatusOK && status < http.StatusBadRequest {
			err = s.deps.Idempotency.MarkDone(key, responseBody, status)
		} else {
			err = s.deps.Idempotency.MarkFailed(key, responseBody, status)
		}
		if err != nil {
			s.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to finalize idempotency record")
		}
	}
}

// replayOrReject обрабатывает повторный запрос с уже известным ключом.
func (s *Server) replayOrReject(c *gin.Context, key string, createErr error) {
	if errors.Is(createErr, domain.ErrIdempotencyHashMismatch) {
		respondError(c, createErr)
		return
	}
	if !errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists) {
		respondError(c, createErr)
		return
	}

	record, err := s.deps.Idempotency.Get(key)
	if err != nil {
		respondError(c, err)
		return
	}

	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		c.JSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is still being processed"})
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		c.Data(record.HTTPStatus, "application/json", record.ResponseBody)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency record is in unknown state"})
	}
}
