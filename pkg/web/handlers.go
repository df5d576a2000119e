// Package web provides HTTP handlers and REST API endpoints for the workflow
// automation engine.
package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/leadfuse/leadfuse/pkg/eventbus"
	"github.com/leadfuse/leadfuse/pkg/events"
	"github.com/leadfuse/leadfuse/pkg/expression"
	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
	"github.com/leadfuse/leadfuse/pkg/workflow"
)

const tenantHeader = "X-Tenant-ID"

type APIHandlers struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	scheduler   *workflow.Scheduler
	expressions *expression.Engine
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	scheduler *workflow.Scheduler,
	expressions *expression.Engine,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		eventBus:    eventBus,
		scheduler:   scheduler,
		expressions: expressions,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "web"),
	}
}

// NotifyEvent ingests one business event and hands it to the matcher via the
// bus. Returns 202: matching and execution are asynchronous.
func (h *APIHandlers) NotifyEvent(c fiber.Ctx) error {
	tenantID := c.Get(tenantHeader)
	if tenantID == "" {
		return badRequest(c, tenantHeader+" header is required")
	}

	var req NotifyEventRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := &models.Event{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		Type:           req.Type,
		LeadID:         req.LeadID,
		ConversationID: req.ConversationID,
		Payload:        req.Payload,
		OccurredAt:     time.Now().UTC(),
	}

	busEvent := events.TriggerReceived{
		BaseEvent: events.NewBaseEvent(events.TriggerReceivedEvent, tenantID),
		Event:     event,
	}

	if err := h.eventBus.Publish(c.Context(), event.ID, busEvent); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(NotifyEventResponse{
		EventID: event.ID,
		Status:  "accepted",
	})
}

// CreateWorkflow stores a new, inactive workflow definition.
func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	tenantID := c.Get(tenantHeader)
	if tenantID == "" {
		return badRequest(c, tenantHeader+" header is required")
	}

	var req CreateWorkflowRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		Name:           req.Name,
		Trigger:        req.Trigger,
		Nodes:          req.Nodes,
		Edges:          req.Edges,
		Active:         false,
		RunOncePerLead: req.RunOncePerLead,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.persistence.SaveWorkflow(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	tenantID := c.Get(tenantHeader)
	if tenantID == "" {
		return badRequest(c, tenantHeader+" header is required")
	}

	workflows, err := h.persistence.Workflows(c.Context(), tenantID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.workflowFromPath(c)
	if err != nil {
		return h.workflowError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return h.workflowError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ActivateWorkflow runs activation validation and flips the workflow active.
// A workflow failing validation stays inactive and the problems are returned
// as a 422.
func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	wf, err := h.workflowFromPath(c)
	if err != nil {
		return h.workflowError(c, err)
	}

	if err := workflow.ValidateForActivation(wf, h.expressions); err != nil {
		return unprocessable(c, err.Error())
	}

	if err := h.persistence.SetWorkflowActive(c.Context(), wf.ID, true); err != nil {
		return internalError(c, err)
	}

	wf.Active = true

	return c.JSON(wf)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	wf, err := h.workflowFromPath(c)
	if err != nil {
		return h.workflowError(c, err)
	}

	if err := h.persistence.SetWorkflowActive(c.Context(), wf.ID, false); err != nil {
		return internalError(c, err)
	}

	wf.Active = false

	return c.JSON(wf)
}

// ExecuteWorkflow is the manual execute/test entrypoint. The execution id is
// assigned here and returned immediately; a worker picks the request up from
// the bus.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	wf, err := h.workflowFromPath(c)
	if err != nil {
		return h.workflowError(c, err)
	}

	var req ExecuteWorkflowRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	executionID := uuid.New().String()

	busEvent := events.ExecutionRequested{
		BaseEvent:   events.NewBaseEvent(events.ExecutionRequestedEvent, wf.TenantID),
		ExecutionID: executionID,
		WorkflowID:  wf.ID,
		LeadID:      req.LeadID,
		TriggerData: req.TriggerData,
	}

	if err := h.eventBus.Publish(c.Context(), executionID, busEvent); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(ExecuteWorkflowResponse{
		ExecutionID: executionID,
		Status:      string(models.ExecutionRunning),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return notFound(c, "Execution not found")
		}

		return internalError(c, err)
	}

	return c.JSON(execution)
}

// GetWorkflowExecutions lists a workflow's executions, optionally filtered by
// lead_id and status query parameters.
func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	filter := persistence.ExecutionFilter{
		WorkflowID: c.Params("id"),
		LeadID:     c.Query("lead_id"),
		Status:     models.ExecutionStatus(c.Query("status")),
	}

	executions, err := h.persistence.Executions(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req CancelExecutionRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	err := h.scheduler.Cancel(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return notFound(c, "Execution not found")
		}

		if strings.Contains(err.Error(), "cannot be cancelled") {
			return conflict(c, err.Error())
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *APIHandlers) workflowFromPath(c fiber.Ctx) (*models.Workflow, error) {
	return h.persistence.WorkflowByID(c.Context(), c.Params("id"))
}

func (h *APIHandlers) workflowError(c fiber.Ctx, err error) error {
	if persistence.IsWorkflowNotFound(err) {
		return notFound(c, "Workflow not found")
	}

	return internalError(c, err)
}
