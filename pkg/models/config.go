package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New()

// NodeConfig is the closed tagged union of per-type node configuration. One
// variant exists per NodeType; workflows are validated against it at
// activation time, never at execution time.
type NodeConfig interface {
	Validate() error
}

// TriggerNodeConfig has no settings; the trigger node is the entry point that
// seeds the execution context with the trigger payload.
type TriggerNodeConfig struct{}

func (TriggerNodeConfig) Validate() error { return nil }

// SendMessageConfig configures send_message and send_email nodes. Content is
// rendered against the execution context before dispatch.
type SendMessageConfig struct {
	Channel    string `json:"channel"     validate:"required,oneof=whatsapp sms email voice"`
	Content    string `json:"content"     validate:"required"`
	TemplateID string `json:"template_id,omitempty"`
}

func (c SendMessageConfig) Validate() error { return configValidator.Struct(c) }

// TagConfig configures add_tag and remove_tag nodes.
type TagConfig struct {
	Tag string `json:"tag" validate:"required"`
}

func (c TagConfig) Validate() error { return configValidator.Struct(c) }

// UpdateLeadConfig applies a partial attribute update to the lead.
type UpdateLeadConfig struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

func (c UpdateLeadConfig) Validate() error { return configValidator.Struct(c) }

// CreateTaskConfig configures the fire-and-forget task creation node.
type CreateTaskConfig struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
	DueInHours  int    `json:"due_in_hours,omitempty" validate:"gte=0"`
}

func (c CreateTaskConfig) Validate() error { return configValidator.Struct(c) }

// DelayConfig suspends the execution for the given duration ("30m", "2h", "72h").
type DelayConfig struct {
	Duration string `json:"duration" validate:"required"`
}

func (c DelayConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return fmt.Errorf("invalid delay duration %q: %w", c.Duration, err)
	}

	if d <= 0 {
		return fmt.Errorf("delay duration must be positive, got %q", c.Duration)
	}

	return nil
}

// ParsedDuration returns the delay as a time.Duration. Call Validate first.
func (c DelayConfig) ParsedDuration() time.Duration {
	d, _ := time.ParseDuration(c.Duration)

	return d
}

// WaitForReplyConfig suspends until an inbound message for the same lead (and
// conversation, when the execution is conversation-scoped) arrives. Channel
// optionally narrows which inbound channel counts as a reply.
type WaitForReplyConfig struct {
	Channel string `json:"channel,omitempty" validate:"omitempty,oneof=whatsapp sms email voice"`
}

func (c WaitForReplyConfig) Validate() error { return configValidator.Struct(c) }

// ConditionConfig exists for readability and grouping. The node always
// continues; branching is expressed entirely via edge conditions.
type ConditionConfig struct {
	Expression string `json:"expression" validate:"required"`
}

func (c ConditionConfig) Validate() error { return configValidator.Struct(c) }

// SplitPathConfig marks every outgoing edge as always-taken.
type SplitPathConfig struct{}

func (SplitPathConfig) Validate() error { return nil }

// WebhookConfig fires an outbound POST with the execution context as payload.
type WebhookConfig struct {
	URL     string            `json:"url" validate:"required,url"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (c WebhookConfig) Validate() error { return configValidator.Struct(c) }

// AIAgentConfig delegates the next conversational step to the AI collaborator.
type AIAgentConfig struct {
	AgentID      string `json:"agent_id" validate:"required"`
	Instructions string `json:"instructions,omitempty"`
}

func (c AIAgentConfig) Validate() error { return configValidator.Struct(c) }

// EndConfig terminates the execution.
type EndConfig struct{}

func (EndConfig) Validate() error { return nil }

// DecodeConfig converts a node's raw data map into its typed configuration
// variant and validates it. Unknown node types are rejected.
func DecodeConfig(nodeType NodeType, data map[string]any) (NodeConfig, error) {
	var cfg NodeConfig

	switch nodeType {
	case NodeTypeTrigger:
		cfg = &TriggerNodeConfig{}
	case NodeTypeSendMessage:
		cfg = &SendMessageConfig{}
	case NodeTypeSendEmail:
		c := &SendMessageConfig{Channel: "email"}
		cfg = c
	case NodeTypeAddTag, NodeTypeRemoveTag:
		cfg = &TagConfig{}
	case NodeTypeUpdateLead:
		cfg = &UpdateLeadConfig{}
	case NodeTypeCreateTask:
		cfg = &CreateTaskConfig{}
	case NodeTypeDelay:
		cfg = &DelayConfig{}
	case NodeTypeWaitForReply:
		cfg = &WaitForReplyConfig{}
	case NodeTypeCondition:
		cfg = &ConditionConfig{}
	case NodeTypeSplitPath:
		cfg = &SplitPathConfig{}
	case NodeTypeWebhook:
		cfg = &WebhookConfig{}
	case NodeTypeAIAgent:
		cfg = &AIAgentConfig{}
	case NodeTypeEnd:
		cfg = &EndConfig{}
	default:
		return nil, fmt.Errorf("unknown node type %q", nodeType)
	}

	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal node data: %w", err)
		}

		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("invalid %s configuration: %w", nodeType, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", nodeType, err)
	}

	return cfg, nil
}
