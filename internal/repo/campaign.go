package repo

import (
	"encoding/json"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
)

// Campaigns persists campaign records.
type Campaigns struct {
	store store.Store
}

func NewCampaigns(s store.Store) *Campaigns {
	return &Campaigns{store: s}
}

// Save validates and stores a campaign record.
func (r *Campaigns) Save(c *model.Campaign) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return errs.Store("marshal campaign", err)
	}
	if err := r.store.Set(store.CampaignKey(c.ID), data); err != nil {
		return errs.Store("store campaign", err)
	}
	return nil
}

// Get returns a campaign by id, or a NotFound error.
func (r *Campaigns) Get(id string) (*model.Campaign, error) {
	data, err := r.store.Get(store.CampaignKey(id))
	if err != nil {
		return nil, errs.Store("load campaign", err)
	}
	if data == nil {
		return nil, errs.NotFound("campaign %s not found", id)
	}

	var c model.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errs.Store("decode campaign", err)
	}
	return &c, nil
}

// ListByTenant returns all campaigns belonging to a tenant.
func (r *Campaigns) ListByTenant(tenantCode string) ([]*model.Campaign, error) {
	values, err := r.store.GetByPrefix(store.PrefixCampaign)
	if err != nil {
		return nil, errs.Store("scan campaigns", err)
	}

	campaigns := make([]*model.Campaign, 0, len(values))
	for _, data := range values {
		var c model.Campaign
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, errs.Store("decode campaign record", err)
		}
		if c.TenantCode == tenantCode {
			campaigns = append(campaigns, &c)
		}
	}
	return campaigns, nil
}

// ListByStatus returns all campaigns in the given status, across
// tenants. Used by the scheduled-campaign promotion job.
func (r *Campaigns) ListByStatus(status model.CampaignStatus) ([]*model.Campaign, error) {
	values, err := r.store.GetByPrefix(store.PrefixCampaign)
	if err != nil {
		return nil, errs.Store("scan campaigns", err)
	}

	var campaigns []*model.Campaign
	for _, data := range values {
		var c model.Campaign
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, errs.Store("decode campaign record", err)
		}
		if c.Status == status {
			campaigns = append(campaigns, &c)
		}
	}
	return campaigns, nil
}

// Delete removes a campaign record.
func (r *Campaigns) Delete(id string) error {
	if err := r.store.Delete(store.CampaignKey(id)); err != nil {
		return errs.Store("delete campaign", err)
	}
	return nil
}
