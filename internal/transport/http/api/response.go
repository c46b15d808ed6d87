package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json failed", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// ErrorCase maps a class of errors to a response. An empty Message echoes err.
type ErrorCase struct {
	Match   func(error) bool
	Status  int
	Code    string
	Message string
}

func Is(target error, status int, code, message string) ErrorCase {
	return ErrorCase{
		Match:   func(err error) bool { return errors.Is(err, target) },
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// UniqueViolation matches postgres unique constraint failures as a 409.
func UniqueViolation(code, message string) ErrorCase {
	return ErrorCase{
		Match: func(err error) bool {
			var pgErr *pgconn.PgError
			return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
		},
		Status:  http.StatusConflict,
		Code:    code,
		Message: message,
	}
}

// FailMapped writes the first matching case. Unmatched errors are logged and
// answered with a 500 carrying fallbackCode and fallbackMessage.
func FailMapped(w http.ResponseWriter, err error, cases []ErrorCase, fallbackCode, fallbackMessage, requestID string) {
	for _, c := range cases {
		if !c.Match(err) {
			continue
		}
		message := c.Message
		if message == "" {
			message = err.Error()
		}
		Fail(w, c.Status, c.Code, message, requestID)
		return
	}
	zap.L().Error(fallbackMessage, zap.String("requestId", requestID), zap.Error(err))
	Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, requestID)
}
