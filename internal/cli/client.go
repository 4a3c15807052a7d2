package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TemplateResponse — template из API.
type TemplateResponse struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Category           string           `json:"category,omitempty"`
	Priority           string           `json:"priority"`
	Steps              []map[string]any `json:"steps"`
	ComplianceRequired bool             `json:"compliance_required"`
	Active             bool             `json:"active"`
	CreatedAt          string           `json:"created_at"`
}

// InstanceStepResponse — шаг instance из API.
type InstanceStepResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Kind        string `json:"kind"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
	CompletedBy string `json:"completed_by,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// InstanceResponse — instance из API.
type InstanceResponse struct {
	ID               string                 `json:"id"`
	TemplateID       string                 `json:"template_id"`
	TemplateName     string                 `json:"template_name"`
	InitiatedBy      string                 `json:"initiated_by"`
	Subject          string                 `json:"subject,omitempty"`
	Priority         string                 `json:"priority"`
	DueAt            string                 `json:"due_at,omitempty"`
	CurrentStepIndex int                    `json:"current_step_index"`
	Status           string                 `json:"status"`
	Steps            []InstanceStepResponse `json:"steps"`
	WakeAt           string                 `json:"wake_at,omitempty"`
	FinishedAt       string                 `json:"finished_at,omitempty"`
	CreatedAt        string                 `json:"created_at"`
}

// AuditEventResponse — audit-событие из API.
type AuditEventResponse struct {
	ID         string `json:"id"`
	InstanceID string `json:"instance_id"`
	StepID     string `json:"step_id,omitempty"`
	Kind       string `json:"kind"`
	Actor      string `json:"actor,omitempty"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID             string         `json:"id"`
	TemplateID     string         `json:"template_id"`
	Name           string         `json:"name"`
	CronExpr       string         `json:"cron_expr,omitempty"`
	IntervalSec    int            `json:"interval_sec,omitempty"`
	Timezone       string         `json:"timezone"`
	Enabled        bool           `json:"enabled"`
	InitiatedBy    string         `json:"initiated_by"`
	Subject        string         `json:"subject,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	NextDueAt      string         `json:"next_due_at,omitempty"`
	LastRunAt      string         `json:"last_run_at,omitempty"`
	LastInstanceID string         `json:"last_instance_id,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// --- Request types ---

// StartInstanceRequest — создание instance.
type StartInstanceRequest struct {
	InitiatedBy string         `json:"initiated_by"`
	Subject     string         `json:"subject,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Priority    string         `json:"priority,omitempty"`
	DueAt       *time.Time     `json:"due_at,omitempty"`
}

// DecisionRequest — approve/reject.
type DecisionRequest struct {
	Role    string `json:"role"`
	Comment string `json:"comment,omitempty"`
}

// CancelRequest — отмена instance.
type CancelRequest struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	InitiatedBy string         `json:"initiated_by,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// ListInstancesOpts — параметры фильтрации instances.
type ListInstancesOpts struct {
	TemplateID string
	Status     string
	Priority   string
	SortDueAt  bool
	Limit      int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для hrflow API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Templates ---

// ListTemplates возвращает все templates.
func (c *Client) ListTemplates() ([]TemplateResponse, error) {
	var templates []TemplateResponse
	err := c.list("/api/v1/templates", nil, &templates)
	return templates, err
}

// CreateTemplate регистрирует template из JSON-описания.
func (c *Client) CreateTemplate(spec json.RawMessage) (*TemplateResponse, error) {
	var tpl TemplateResponse
	err := c.doData(http.MethodPost, "/api/v1/templates", spec, &tpl)
	return &tpl, err
}

// GetTemplate возвращает template по ID.
func (c *Client) GetTemplate(id string) (*TemplateResponse, error) {
	var tpl TemplateResponse
	err := c.get("/api/v1/templates/"+id, &tpl)
	return &tpl, err
}

// DeactivateTemplate выключает template.
func (c *Client) DeactivateTemplate(id string) error {
	return c.delete("/api/v1/templates/" + id)
}

// --- Instances ---

// ListInstances возвращает список instances с фильтрацией.
func (c *Client) ListInstances(opts ListInstancesOpts) ([]InstanceResponse, error) {
	params := url.Values{}
	if opts.TemplateID != "" {
		params.Set("template_id", opts.TemplateID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Priority != "" {
		params.Set("priority", opts.Priority)
	}
	if opts.SortDueAt {
		params.Set("sort", "due_at")
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var instances []InstanceResponse
	err := c.list("/api/v1/instances", params, &instances)
	return instances, err
}

// StartInstance создаёт instance из template.
func (c *Client) StartInstance(templateID string, req StartInstanceRequest) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/templates/"+templateID+"/instances", req, &inst)
	return &inst, err
}

// GetInstance возвращает instance по ID.
func (c *Client) GetInstance(id string) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.get("/api/v1/instances/"+id, &inst)
	return &inst, err
}

// ApproveInstance согласует текущий approval-шаг.
func (c *Client) ApproveInstance(id string, req DecisionRequest) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/instances/"+id+"/approve", req, &inst)
	return &inst, err
}

// RejectInstance отклоняет instance.
func (c *Client) RejectInstance(id string, req DecisionRequest) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/instances/"+id+"/reject", req, &inst)
	return &inst, err
}

// CancelInstance отменяет instance.
func (c *Client) CancelInstance(id string, req CancelRequest) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/instances/"+id+"/cancel", req, &inst)
	return &inst, err
}

// RecheckInstance принудительно перепроверяет текущий шаг.
func (c *Client) RecheckInstance(id string) (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.post("/api/v1/instances/"+id+"/recheck", nil, &inst)
	return &inst, err
}

// ListAudit возвращает audit-журнал instance.
func (c *Client) ListAudit(instanceID string) ([]AuditEventResponse, error) {
	var events []AuditEventResponse
	err := c.list("/api/v1/instances/"+instanceID+"/audit", nil, &events)
	return events, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если templateID не пустой — фильтрует.
func (c *Client) ListSchedules(templateID string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if templateID != "" {
		params.Set("template_id", templateID)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для template.
func (c *Client) CreateSchedule(templateID string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/templates/"+templateID+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает schedule.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает schedule.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
