package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

// Activation asks the scheduler to start one fresh execution.
type Activation struct {
	Workflow    *models.Workflow
	LeadID      string
	TriggerData map[string]any
}

// Resumption asks the scheduler to resume one suspended execution.
type Resumption struct {
	ExecutionID string
	NodeID      string
	Payload     map[string]any
}

// Matcher resolves an inbound business event into the set of executions to
// resume and workflows to start.
type Matcher struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewMatcher(persistence persistence.Persistence, logger *slog.Logger) *Matcher {
	return &Matcher{
		persistence: persistence,
		logger:      logger.With("module", "trigger_matcher"),
	}
}

// Match runs resume matching first, then fresh activation. An event that
// resumes a wait for some lead never also starts a new execution for that
// lead: a reply should advance the conversation already in flight, not fork a
// second one.
func (m *Matcher) Match(ctx context.Context, event *models.Event) ([]Activation, []Resumption, error) {
	resumptions, resumedLeads, err := m.matchResumptions(ctx, event)
	if err != nil {
		return nil, nil, err
	}

	activations, err := m.matchActivations(ctx, event, resumedLeads)
	if err != nil {
		return nil, nil, err
	}

	m.logger.Debug("matched event",
		"event_type", event.Type,
		"lead_id", event.LeadID,
		"resumptions", len(resumptions),
		"activations", len(activations))

	return activations, resumptions, nil
}

func (m *Matcher) matchResumptions(ctx context.Context, event *models.Event) ([]Resumption, map[string]bool, error) {
	waits, err := m.persistence.PendingWaitsForEvent(ctx, event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query pending waits: %w", err)
	}

	resumptions := make([]Resumption, 0, len(waits))
	resumedLeads := make(map[string]bool)

	for _, wait := range waits {
		resumptions = append(resumptions, Resumption{
			ExecutionID: wait.ExecutionID,
			NodeID:      wait.NodeID,
			Payload:     event.Payload,
		})

		if wait.Match != nil && wait.Match.LeadID != "" {
			resumedLeads[wait.Match.LeadID] = true
		}
	}

	return resumptions, resumedLeads, nil
}

func (m *Matcher) matchActivations(ctx context.Context, event *models.Event, resumedLeads map[string]bool) ([]Activation, error) {
	if event.LeadID != "" && resumedLeads[event.LeadID] {
		return nil, nil
	}

	workflows, err := m.persistence.ActiveWorkflowsByTrigger(ctx, event.TenantID, event.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows for trigger %s: %w", event.Type, err)
	}

	var activations []Activation

	for _, workflow := range workflows {
		if !m.triggerPredicateMatches(workflow.Trigger, event) {
			continue
		}

		if workflow.RunOncePerLead && event.LeadID != "" {
			active, err := m.persistence.HasNonTerminalExecution(ctx, workflow.ID, event.LeadID)
			if err != nil {
				return nil, fmt.Errorf("failed to check run-once dedup: %w", err)
			}

			if active {
				m.logger.Debug("skipping run-once workflow, lead already in flight",
					"workflow_id", workflow.ID, "lead_id", event.LeadID)

				continue
			}
		}

		activations = append(activations, Activation{
			Workflow:    workflow,
			LeadID:      event.LeadID,
			TriggerData: event.Payload,
		})
	}

	return activations, nil
}

// triggerPredicateMatches checks the per-type trigger configuration against
// the event payload. Every scalar value in the config must equal the payload
// value under the same key; an empty config matches every event of the type.
func (m *Matcher) triggerPredicateMatches(trigger *models.Trigger, event *models.Event) bool {
	if trigger == nil {
		return false
	}

	for key, want := range trigger.Config {
		got, ok := event.Payload[key]
		if !ok {
			return false
		}

		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}

	return true
}
