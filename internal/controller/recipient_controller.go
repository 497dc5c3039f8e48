// internal/controller/recipient_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
	"github.com/aurangzaib-ai/whatsapp-project/internal/service"
)

type RecipientController struct {
	Recipients repository.RecipientRepositoryInterface
	OptOuts    repository.OptOutRepositoryInterface
	Importer   *service.Importer
	Log        zerolog.Logger
}

type recipientPayload struct {
	Phone      string  `json:"phone"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	City       string  `json:"city"`
	Plan       string  `json:"plan"`
	ExpiryDate *string `json:"expiry_date"`
	OptedIn    *bool   `json:"opted_in"`
}

func (c *RecipientController) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	var body recipientPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !service.ValidPhone(body.Phone) {
		http.Error(w, appErrors.NewInvalidPhone(body.Phone).Error(), http.StatusBadRequest)
		return
	}

	existing, err := c.Recipients.GetByPhone(body.Phone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, appErrors.NewRecipientExists(body.Phone).Error(), http.StatusConflict)
		return
	}

	recipient := &model.Recipient{
		Phone:    body.Phone,
		FullName: body.FullName,
		Email:    body.Email,
		Status:   body.Status,
		City:     body.City,
		Plan:     body.Plan,
		OptedIn:  true,
	}
	if body.OptedIn != nil {
		recipient.OptedIn = *body.OptedIn
	}
	if body.ExpiryDate != nil {
		if t, err := time.Parse("2006-01-02", *body.ExpiryDate); err == nil {
			recipient.ExpiryDate = &t
		}
	}

	if err := c.Recipients.Create(recipient); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(recipient)
}

func (c *RecipientController) GetRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	recipient, err := c.Recipients.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recipient == nil {
		http.Error(w, appErrors.NewRecipientNotFound(id).Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recipient)
}

func (c *RecipientController) UpdateRecipient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid recipient id", http.StatusBadRequest)
		return
	}

	recipient, err := c.Recipients.GetByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if recipient == nil {
		http.Error(w, appErrors.NewRecipientNotFound(id).Error(), http.StatusNotFound)
		return
	}

	var body recipientPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if body.FullName != "" {
		recipient.FullName = body.FullName
	}
	if body.Email != "" {
		recipient.Email = body.Email
	}
	if body.Status != "" {
		recipient.Status = body.Status
	}
	if body.City != "" {
		recipient.City = body.City
	}
	if body.Plan != "" {
		recipient.Plan = body.Plan
	}
	if body.OptedIn != nil {
		recipient.OptedIn = *body.OptedIn
	}
	if body.ExpiryDate != nil {
		if t, err := time.Parse("2006-01-02", *body.ExpiryDate); err == nil {
			recipient.ExpiryDate = &t
		}
	}

	if err := c.Recipients.Update(recipient); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recipient)
}

func (c *RecipientController) ListRecipients(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 1000 {
		pageSize = 1000
	}

	filter := repository.ListFilter{
		Status: r.URL.Query().Get("status"),
		City:   r.URL.Query().Get("city"),
		Plan:   r.URL.Query().Get("plan"),
	}
	if raw := r.URL.Query().Get("opted_in"); raw != "" {
		v := raw == "true" || raw == "1"
		filter.OptedIn = &v
	}

	recipients, total, err := c.Recipients.List((page-1)*pageSize, pageSize, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data":        recipients,
		"total_count": total,
	})
}

// ListOptOuts returns the opt-out audit trail, newest first.
func (c *RecipientController) ListOptOuts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	optouts, err := c.OptOuts.List((page-1)*pageSize, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": optouts})
}

// ImportRecipients accepts a CSV upload (multipart field "file" or a raw
// body) and bulk-creates recipients.
func (c *RecipientController) ImportRecipients(w http.ResponseWriter, r *http.Request) {
	var result *service.ImportResult

	file, _, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		result, err = c.Importer.Import(file)
	} else {
		result, err = c.Importer.Import(r.Body)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
