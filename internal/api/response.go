package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/engine"
	"github.com/shaiso/hrflow/internal/registry"
	"github.com/shaiso/hrflow/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeTemplateInactive    ErrorCode = "TEMPLATE_INACTIVE"
	ErrCodeWrongActor          ErrorCode = "WRONG_ACTOR"
	ErrCodeNotAwaitingApproval ErrorCode = "NOT_AWAITING_APPROVAL"
	ErrCodeAlreadyTerminal     ErrorCode = "ALREADY_TERMINAL"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeSideEffectFailure   ErrorCode = "SIDE_EFFECT_FAILURE"
	ErrCodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleEngineError преобразует ошибку движка/реестра в HTTP ответ.
// Возвращает true, если ошибка была обработана.
func HandleEngineError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, repo.ErrNotFound):
		NotFound(w, notFoundMsg)
	case errors.Is(err, domain.ErrInvalidTemplate):
		Error(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, registry.ErrTemplateInactive):
		Error(w, http.StatusConflict, ErrCodeTemplateInactive, err.Error())
	case errors.Is(err, engine.ErrAlreadyTerminal):
		Error(w, http.StatusConflict, ErrCodeAlreadyTerminal, err.Error())
	case errors.Is(err, engine.ErrWrongActor):
		Error(w, http.StatusConflict, ErrCodeWrongActor, err.Error())
	case errors.Is(err, engine.ErrNotAwaitingApproval):
		Error(w, http.StatusConflict, ErrCodeNotAwaitingApproval, err.Error())
	case errors.Is(err, repo.ErrConflict):
		Error(w, http.StatusConflict, ErrCodeConflict, "instance was modified concurrently, retry")
	case errors.Is(err, engine.ErrSideEffect):
		Error(w, http.StatusBadGateway, ErrCodeSideEffectFailure, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}
