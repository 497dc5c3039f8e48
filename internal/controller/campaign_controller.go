// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/queue"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
	"github.com/aurangzaib-ai/whatsapp-project/internal/service"
)

const defaultDispatchTopic = "campaign_dispatch"

type CampaignController struct {
	Dispatcher *service.Dispatcher
	Ledger     repository.CampaignRepositoryInterface
	Responses  repository.ResponseRepositoryInterface
	Queue      queue.Queue
	// Topic is the dispatch queue name; must match the worker's.
	Topic string
	Log   zerolog.Logger
}

func (c *CampaignController) topic() string {
	if c.Topic == "" {
		return defaultDispatchTopic
	}
	return c.Topic
}

type createCampaignRequest struct {
	Name             string `json:"name"`
	TemplateName     string `json:"template_name"`
	Description      string `json:"description"`
	LanguageCode     string `json:"language_code"`
	StatusFilter     string `json:"status_filter"`
	CityFilter       string `json:"city_filter"`
	PlanFilter       string `json:"plan_filter"`
	ExpiryDaysFilter *int   `json:"expiry_days_filter"`
	AutoDispatch     bool   `json:"auto_dispatch"`
}

// CreateCampaign fans a campaign out and, when auto_dispatch is set, hands
// the send work to the dispatch queue. The request returns as soon as the
// ledger entries exist; progress is observed by polling the campaign.
func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.TemplateName == "" {
		http.Error(w, "name and template_name are required", http.StatusBadRequest)
		return
	}

	campaign, err := c.Dispatcher.CreateCampaign(r.Context(), service.CreateCampaignInput{
		Name:         body.Name,
		TemplateName: body.TemplateName,
		Description:  body.Description,
		LanguageCode: body.LanguageCode,
		Filter: repository.SegmentFilter{
			Status:           body.StatusFilter,
			City:             body.CityFilter,
			Plan:             body.PlanFilter,
			ExpiryWithinDays: body.ExpiryDaysFilter,
		},
	})
	if err != nil {
		var noEligible *appErrors.ErrNoEligibleRecipients
		if errors.As(err, &noEligible) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dispatchStarted := false
	if body.AutoDispatch {
		if err := c.Queue.Publish(c.topic(), queue.NewDispatchJob(campaign.ID)); err != nil {
			c.Log.Error().Err(err).Int("campaign_id", campaign.ID).
				Msg("failed to enqueue dispatch job")
		} else {
			dispatchStarted = true
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"campaign_id":      campaign.ID,
		"total_recipients": campaign.TargetCount,
		"queued_count":     campaign.TargetCount,
		"dispatch_started": dispatchStarted,
	})
}

// DispatchCampaign enqueues a (re-)dispatch. Safe to call again on a
// partially dispatched campaign: already-sent messages are skipped.
func (c *CampaignController) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	if _, err := c.Ledger.GetByID(id); err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := c.Queue.Publish(c.topic(), queue.NewDispatchJob(id)); err != nil {
		http.Error(w, "failed to enqueue dispatch job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "dispatch_started",
		"campaign_id": id,
	})
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	campaigns, total, err := c.Ledger.List(offset, pageSize, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data": campaigns,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total_count": total,
			"total_pages": totalPages,
		},
	})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := c.Ledger.GetByID(id)
	if err != nil {
		var notFound *appErrors.ErrCampaignNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := c.Ledger.MessageStats(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"campaign": campaign,
		"stats":    stats,
	})
}

// ListResponses returns the inbound replies recorded for a campaign.
func (c *CampaignController) ListResponses(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	responses, err := c.Responses.ListByCampaign(id, offset, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": responses})
}
