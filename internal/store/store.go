// Package store provides the string-keyed record store backing the
// phishing simulation engine.
package store

import (
	"sort"
	"strings"
	"sync"
)

// Key prefixes used by the phishing subsystem.
const (
	PrefixTemplate  = "phishing_template:"
	PrefixCampaign  = "phishing_campaign:"
	PrefixRecipient = "phishing_recipient:"
)

// TemplateKey builds the store key for a template record.
func TemplateKey(templateID string) string {
	return PrefixTemplate + templateID
}

// CampaignKey builds the store key for a campaign record.
func CampaignKey(campaignID string) string {
	return PrefixCampaign + campaignID
}

// RecipientKey builds the composite store key for a recipient record,
// so that all recipients of a campaign share a scannable prefix.
func RecipientKey(campaignID, recipientID string) string {
	return PrefixRecipient + campaignID + ":" + recipientID
}

// RecipientPrefix returns the scan prefix covering every recipient of
// a campaign.
func RecipientPrefix(campaignID string) string {
	return PrefixRecipient + campaignID + ":"
}

// Store is the durable key-value contract. Get returns (nil, nil) for
// an absent key; GetByPrefix returns values in unspecified order.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	GetByPrefix(prefix string) ([][]byte, error)
	DeleteByPrefix(prefix string) (int, error)
	Close() error
}

// Memory is an in-process Store used by tests and single-process
// tooling.
type Memory struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.records[key] = v
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *Memory) GetByPrefix(prefix string) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		v := make([]byte, len(m.records[k]))
		copy(v, m.records[k])
		values = append(values, v)
	}
	return values, nil
}

func (m *Memory) DeleteByPrefix(prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
