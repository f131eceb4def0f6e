package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/errs"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/model"
)

// TemplateRequest is the body for creating or updating a template.
type TemplateRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	SenderName  string `json:"senderName"`
	SenderEmail string `json:"senderEmail"`
	Subject     string `json:"subject"`
	BodyHTML    string `json:"bodyHtml"`
	BodyText    string `json:"bodyText"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	templates, err := s.templates.List(identity.TenantCode)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now()
	t := &model.Template{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Category:    req.Category,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		Subject:     req.Subject,
		BodyHTML:    req.BodyHTML,
		BodyText:    req.BodyText,
		IsGlobal:    false,
		TenantCode:  identity.TenantCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.templates.Save(t); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, t)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tenantTemplate(w, r)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	t, ok := s.tenantTemplate(w, r)
	if !ok {
		return
	}
	if t.IsGlobal {
		s.sendDomainError(w, errs.Permission("global templates are read-only for tenant %s", identity.TenantCode))
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t.Name = req.Name
	t.Category = req.Category
	t.SenderName = req.SenderName
	t.SenderEmail = req.SenderEmail
	t.Subject = req.Subject
	t.BodyHTML = req.BodyHTML
	t.BodyText = req.BodyText
	t.UpdatedAt = time.Now()

	if err := s.templates.Save(t); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	t, ok := s.tenantTemplate(w, r)
	if !ok {
		return
	}
	if t.IsGlobal {
		s.sendDomainError(w, errs.Permission("global templates are read-only for tenant %s", identity.TenantCode))
		return
	}

	if err := s.templates.Delete(t.ID); err != nil {
		s.sendDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tenantTemplate loads the template from the URL, hiding templates the
// tenant may not see.
func (s *Server) tenantTemplate(w http.ResponseWriter, r *http.Request) (*model.Template, bool) {
	identity := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	t, err := s.templates.Get(id)
	if err != nil {
		s.sendDomainError(w, err)
		return nil, false
	}
	if !t.VisibleTo(identity.TenantCode) {
		s.sendDomainError(w, errs.NotFound("template %s not found", id))
		return nil, false
	}
	return t, true
}
