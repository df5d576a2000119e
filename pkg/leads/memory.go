package leads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

// MemoryLeadStore is an in-process lead store. Tag operations are idempotent,
// matching the CRM contract.
type MemoryLeadStore struct {
	mu    sync.RWMutex
	leads map[string]*models.Lead
}

func NewMemoryLeadStore() *MemoryLeadStore {
	return &MemoryLeadStore{leads: make(map[string]*models.Lead)}
}

// Put seeds or replaces a lead.
func (s *MemoryLeadStore) Put(lead *models.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *lead
	s.leads[lead.ID] = &clone
}

func (s *MemoryLeadStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s not found", id)
	}

	clone := *lead
	clone.Tags = append([]string(nil), lead.Tags...)

	return &clone, nil
}

func (s *MemoryLeadStore) UpdateLead(ctx context.Context, id string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead %s not found", id)
	}

	if lead.Attributes == nil {
		lead.Attributes = map[string]any{}
	}

	for key, value := range partial {
		switch key {
		case "name":
			lead.Name, _ = value.(string)
		case "email":
			lead.Email, _ = value.(string)
		case "phone":
			lead.Phone, _ = value.(string)
		default:
			lead.Attributes[key] = value
		}
	}

	lead.UpdatedAt = time.Now().UTC()

	return nil
}

func (s *MemoryLeadStore) AddTag(ctx context.Context, id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead %s not found", id)
	}

	if lead.HasTag(tag) {
		return nil
	}

	lead.Tags = append(lead.Tags, tag)
	lead.UpdatedAt = time.Now().UTC()

	return nil
}

func (s *MemoryLeadStore) RemoveTag(ctx context.Context, id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead %s not found", id)
	}

	tags := lead.Tags[:0]

	for _, t := range lead.Tags {
		if t != tag {
			tags = append(tags, t)
		}
	}

	lead.Tags = tags
	lead.UpdatedAt = time.Now().UTC()

	return nil
}

var _ protocol.LeadStore = (*MemoryLeadStore)(nil)
