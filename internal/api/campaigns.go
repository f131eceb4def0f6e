package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/campaign"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: timeSince(s.startTime),
	})
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	campaigns, err := s.campaigns.List(identity.TenantCode)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, campaigns)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var in campaign.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Tenant identity always comes from the credential, never from
	// the request body.
	in.TenantCode = identity.TenantCode

	c, err := s.campaigns.Create(&in, identity.Email)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}

	var in campaign.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.campaigns.Update(c.ID, &in)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}

	if err := s.campaigns.Delete(c.ID); err != nil {
		s.sendDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLaunchCampaign(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}

	launched, err := s.campaigns.Launch(r.Context(), c.ID, identity.Email)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, launched)
}

func (s *Server) handleStopCampaign(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}

	stopped, err := s.campaigns.Stop(c.ID, identity.Email)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, stopped)
}

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}

	recipients, err := s.campaigns.Recipients(c.ID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	if c.Privacy.Anonymize || c.Privacy.Granularity == "aggregated" {
		for _, rec := range recipients {
			rec.Email = ""
			rec.Name = ""
		}
	}
	s.sendJSON(w, http.StatusOK, recipients)
}

func (s *Server) handleCampaignStats(w http.ResponseWriter, r *http.Request) {
	c, ok := s.tenantCampaign(w, r)
	if !ok {
		return
	}

	stats, err := s.analytics.Campaign(c.ID)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTenantStats(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	stats, err := s.analytics.Tenant(identity.TenantCode)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, stats)
}

// tenantCampaign loads the campaign from the URL and hides campaigns
// of other tenants behind a not-found response.
func (s *Server) tenantCampaign(w http.ResponseWriter, r *http.Request) (*model.Campaign, bool) {
	identity := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	c, err := s.campaigns.Get(id)
	if err != nil {
		s.sendDomainError(w, err)
		return nil, false
	}
	if c.TenantCode != identity.TenantCode {
		s.sendDomainError(w, errs.NotFound("campaign %s not found", id))
		return nil, false
	}
	return c, true
}
