package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Templates
	mux.Handle("GET /api/v1/templates", chain(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("POST /api/v1/templates", chain(http.HandlerFunc(h.CreateTemplate)))
	mux.Handle("GET /api/v1/templates/{id}", chain(http.HandlerFunc(h.GetTemplate)))
	mux.Handle("DELETE /api/v1/templates/{id}", chain(http.HandlerFunc(h.DeactivateTemplate)))

	// Instances
	mux.Handle("GET /api/v1/instances", chain(http.HandlerFunc(h.ListInstances)))
	mux.Handle("POST /api/v1/templates/{id}/instances", chain(http.HandlerFunc(h.StartInstance)))
	mux.Handle("GET /api/v1/instances/{id}", chain(http.HandlerFunc(h.GetInstance)))
	mux.Handle("POST /api/v1/instances/{id}/approve", chain(http.HandlerFunc(h.ApproveInstance)))
	mux.Handle("POST /api/v1/instances/{id}/reject", chain(http.HandlerFunc(h.RejectInstance)))
	mux.Handle("POST /api/v1/instances/{id}/cancel", chain(http.HandlerFunc(h.CancelInstance)))
	mux.Handle("POST /api/v1/instances/{id}/recheck", chain(http.HandlerFunc(h.RecheckInstance)))
	mux.Handle("GET /api/v1/instances/{id}/audit", chain(http.HandlerFunc(h.ListInstanceAudit)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/templates/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}
