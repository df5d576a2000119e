package models

import "time"

// Lead is the read snapshot of a CRM lead as seen by node executors. The lead
// store collaborator owns the source of truth; the engine performs no locking
// on lead attributes and last-write-wins is the accepted semantics.
type Lead struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// HasTag reports whether the lead carries the given tag.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// AsMap exposes the lead to condition expressions and templates.
func (l *Lead) AsMap() map[string]any {
	if l == nil {
		return nil
	}

	attrs := make(map[string]any, len(l.Attributes))
	for k, v := range l.Attributes {
		attrs[k] = v
	}

	return map[string]any{
		"id":         l.ID,
		"name":       l.Name,
		"email":      l.Email,
		"phone":      l.Phone,
		"tags":       append([]string(nil), l.Tags...),
		"attributes": attrs,
	}
}
