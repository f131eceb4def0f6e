package repo

import (
	"encoding/json"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
)

// Recipients persists recipient records under the composite
// campaign:recipient key so one prefix scan yields a campaign's whole
// target list.
type Recipients struct {
	store store.Store
}

func NewRecipients(s store.Store) *Recipients {
	return &Recipients{store: s}
}

// Save validates and stores a recipient record.
func (r *Recipients) Save(rec *model.Recipient) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errs.Store("marshal recipient", err)
	}
	if err := r.store.Set(store.RecipientKey(rec.CampaignID, rec.ID), data); err != nil {
		return errs.Store("store recipient", err)
	}
	return nil
}

// Get returns one recipient of a campaign, or a NotFound error.
func (r *Recipients) Get(campaignID, recipientID string) (*model.Recipient, error) {
	data, err := r.store.Get(store.RecipientKey(campaignID, recipientID))
	if err != nil {
		return nil, errs.Store("load recipient", err)
	}
	if data == nil {
		return nil, errs.NotFound("recipient %s not found in campaign %s", recipientID, campaignID)
	}

	var rec model.Recipient
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Store("decode recipient", err)
	}
	return &rec, nil
}

// ListByCampaign returns every recipient of a campaign.
func (r *Recipients) ListByCampaign(campaignID string) ([]*model.Recipient, error) {
	values, err := r.store.GetByPrefix(store.RecipientPrefix(campaignID))
	if err != nil {
		return nil, errs.Store("scan recipients", err)
	}

	recipients := make([]*model.Recipient, 0, len(values))
	for _, data := range values {
		var rec model.Recipient
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errs.Store("decode recipient record", err)
		}
		recipients = append(recipients, &rec)
	}
	return recipients, nil
}

// DeleteByCampaign removes every recipient record of a campaign and
// returns how many were removed.
func (r *Recipients) DeleteByCampaign(campaignID string) (int, error) {
	n, err := r.store.DeleteByPrefix(store.RecipientPrefix(campaignID))
	if err != nil {
		return 0, errs.Store("delete recipients", err)
	}
	return n, nil
}
