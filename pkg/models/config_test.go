package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig_SendMessage(t *testing.T) {
	cfg, err := DecodeConfig(NodeTypeSendMessage, map[string]any{
		"channel": "whatsapp",
		"content": "Hi {{.lead.name}}",
	})
	require.NoError(t, err)

	config, ok := cfg.(*SendMessageConfig)
	require.True(t, ok)
	assert.Equal(t, "whatsapp", config.Channel)
	assert.Equal(t, "Hi {{.lead.name}}", config.Content)
}

func TestDecodeConfig_SendMessage_MissingChannel(t *testing.T) {
	_, err := DecodeConfig(NodeTypeSendMessage, map[string]any{
		"content": "hello",
	})
	assert.Error(t, err)
}

func TestDecodeConfig_SendMessage_UnknownChannel(t *testing.T) {
	_, err := DecodeConfig(NodeTypeSendMessage, map[string]any{
		"channel": "pigeon",
		"content": "hello",
	})
	assert.Error(t, err)
}

func TestDecodeConfig_SendEmail_PinsChannel(t *testing.T) {
	cfg, err := DecodeConfig(NodeTypeSendEmail, map[string]any{
		"content": "hello",
	})
	require.NoError(t, err)

	config, ok := cfg.(*SendMessageConfig)
	require.True(t, ok)
	assert.Equal(t, "email", config.Channel)
}

func TestDecodeConfig_Delay(t *testing.T) {
	cfg, err := DecodeConfig(NodeTypeDelay, map[string]any{"duration": "72h"})
	require.NoError(t, err)

	config, ok := cfg.(*DelayConfig)
	require.True(t, ok)
	assert.Equal(t, 72*time.Hour, config.ParsedDuration())
}

func TestDecodeConfig_Delay_InvalidDuration(t *testing.T) {
	_, err := DecodeConfig(NodeTypeDelay, map[string]any{"duration": "3 days"})
	assert.Error(t, err)
}

func TestDecodeConfig_Delay_NonPositiveDuration(t *testing.T) {
	_, err := DecodeConfig(NodeTypeDelay, map[string]any{"duration": "-5m"})
	assert.Error(t, err)
}

func TestDecodeConfig_Webhook_InvalidURL(t *testing.T) {
	_, err := DecodeConfig(NodeTypeWebhook, map[string]any{"url": "not a url"})
	assert.Error(t, err)
}

func TestDecodeConfig_UpdateLead_EmptyFields(t *testing.T) {
	_, err := DecodeConfig(NodeTypeUpdateLead, map[string]any{"fields": map[string]any{}})
	assert.Error(t, err)
}

func TestDecodeConfig_UnknownNodeType(t *testing.T) {
	_, err := DecodeConfig(NodeType("teleport"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node type")
}

func TestDecodeConfig_EmptyDataForConfiglessTypes(t *testing.T) {
	for _, nodeType := range []NodeType{NodeTypeTrigger, NodeTypeSplitPath, NodeTypeEnd} {
		_, err := DecodeConfig(nodeType, nil)
		assert.NoError(t, err, "node type %s", nodeType)
	}
}
