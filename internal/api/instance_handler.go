package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/engine"
)

// StartInstance создаёт instance из активного template.
// POST /api/v1/templates/{id}/instances
func (h *Handler) StartInstance(w http.ResponseWriter, r *http.Request) {
	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	var req StartInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.InitiatedBy == "" {
		BadRequest(w, "initiated_by is required")
		return
	}

	var priority domain.Priority
	if req.Priority != "" {
		priority = domain.ParsePriority(req.Priority)
	}

	inst, err := h.engine.Start(r.Context(), engine.StartRequest{
		TemplateID:  templateID,
		InitiatedBy: req.InitiatedBy,
		Subject:     req.Subject,
		Payload:     req.Payload,
		Priority:    priority,
		DueAt:       req.DueAt,
	})
	if HandleEngineError(w, h.logger, err, "template not found") {
		return
	}

	Created(w, InstanceFromDomain(inst))
}

// GetInstance возвращает instance по ID.
// GET /api/v1/instances/{id}
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	inst, err := h.engine.Get(r.Context(), id)
	if HandleEngineError(w, h.logger, err, "instance not found") {
		return
	}

	Success(w, InstanceFromDomain(inst))
}

// ListInstances возвращает список instances с фильтрацией.
// GET /api/v1/instances?template_id=...&status=...&priority=...&sort=due_at&limit=...&offset=...
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	filter := domain.InstanceFilter{
		Limit:  parseIntParam(r, "limit", 50),
		Offset: parseIntParam(r, "offset", 0),
	}

	if templateIDStr := r.URL.Query().Get("template_id"); templateIDStr != "" {
		templateID, err := uuid.Parse(templateIDStr)
		if err != nil {
			BadRequest(w, "invalid template_id")
			return
		}
		filter.TemplateID = &templateID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.InstanceStatus(status)
		if !filter.Status.IsValid() {
			BadRequest(w, "unknown status")
			return
		}
	}

	if priority := r.URL.Query().Get("priority"); priority != "" {
		filter.Priority = domain.Priority(priority)
		if !filter.Priority.IsValid() {
			BadRequest(w, "unknown priority")
			return
		}
	}

	filter.SortByDueAt = r.URL.Query().Get("sort") == "due_at"

	instances, err := h.engine.List(r.Context(), filter)
	if HandleEngineError(w, h.logger, err, "") {
		return
	}

	result := make([]InstanceResponse, len(instances))
	for i := range instances {
		result[i] = InstanceFromDomain(&instances[i])
	}

	List(w, result, len(result))
}

// ApproveInstance согласует текущий approval-шаг.
// POST /api/v1/instances/{id}/approve
func (h *Handler) ApproveInstance(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.Approve)
}

// RejectInstance отклоняет instance на текущем approval-шаге.
// POST /api/v1/instances/{id}/reject
func (h *Handler) RejectInstance(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.Reject)
}

// decide — общий код approve/reject.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id uuid.UUID, role, comment string) (*domain.Instance, error)) {

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Role == "" {
		BadRequest(w, "role is required")
		return
	}

	inst, err := op(r.Context(), id, req.Role, req.Comment)
	if HandleEngineError(w, h.logger, err, "instance not found") {
		return
	}

	Success(w, InstanceFromDomain(inst))
}

// CancelInstance административно отменяет instance.
// POST /api/v1/instances/{id}/cancel
func (h *Handler) CancelInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	inst, err := h.engine.Cancel(r.Context(), id, req.Actor, req.Reason)
	if HandleEngineError(w, h.logger, err, "instance not found") {
		return
	}

	Success(w, InstanceFromDomain(inst))
}

// RecheckInstance принудительно перепроверяет текущий шаг instance.
// POST /api/v1/instances/{id}/recheck
func (h *Handler) RecheckInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	inst, err := h.engine.Recheck(r.Context(), id)
	if HandleEngineError(w, h.logger, err, "instance not found") {
		return
	}

	Success(w, InstanceFromDomain(inst))
}

// ListInstanceAudit возвращает audit-журнал instance.
// GET /api/v1/instances/{id}/audit
func (h *Handler) ListInstanceAudit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	// Проверяем, что instance существует
	if _, err := h.engine.Get(r.Context(), id); err != nil {
		HandleEngineError(w, h.logger, err, "instance not found")
		return
	}

	events, err := h.auditRepo.ListByInstance(r.Context(), id)
	if HandleEngineError(w, h.logger, err, "") {
		return
	}

	result := make([]AuditEventResponse, len(events))
	for i, e := range events {
		result[i] = AuditEventFromDomain(e)
	}

	List(w, result, len(result))
}

// parseIntParam парсит числовой query-параметр с дефолтным значением.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
