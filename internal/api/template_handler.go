package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/repo"
)

// CreateTemplate регистрирует новый template.
// POST /api/v1/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	tpl := &domain.Template{
		Name:               req.Name,
		Category:           req.Category,
		Priority:           domain.ParsePriority(req.Priority),
		Steps:              req.Steps,
		ComplianceRequired: req.ComplianceRequired,
	}

	if err := h.registry.Register(r.Context(), tpl); err != nil {
		HandleEngineError(w, h.logger, err, "")
		return
	}

	Created(w, TemplateFromDomain(*tpl))
}

// GetTemplate возвращает template по ID, включая деактивированные:
// по ним отображается история уже созданных instances.
// GET /api/v1/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	tpl, err := h.registry.Get(r.Context(), id)
	if HandleEngineError(w, h.logger, err, "template not found") {
		return
	}

	Success(w, TemplateFromDomain(*tpl))
}

// ListTemplates возвращает список templates с фильтрацией.
// GET /api/v1/templates?category=...&active=...&limit=...&offset=...
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	filter := repo.TemplateFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    parseIntParam(r, "limit", 50),
		Offset:   parseIntParam(r, "offset", 0),
	}

	if activeStr := r.URL.Query().Get("active"); activeStr != "" {
		active := activeStr == "true"
		filter.Active = &active
	}

	templates, err := h.registry.List(r.Context(), filter)
	if HandleEngineError(w, h.logger, err, "") {
		return
	}

	result := make([]TemplateResponse, len(templates))
	for i, tpl := range templates {
		result[i] = TemplateFromDomain(tpl)
	}

	List(w, result, len(result))
}

// DeactivateTemplate выключает template. Идемпотентно; уже запущенные
// instances продолжают выполняться.
// DELETE /api/v1/templates/{id}
func (h *Handler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid template id")
		return
	}

	if err := h.registry.Deactivate(r.Context(), id); err != nil {
		HandleEngineError(w, h.logger, err, "template not found")
		return
	}

	NoContent(w)
}
