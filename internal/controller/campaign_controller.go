// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/textpulse/sms-backend/internal/errors"
    "github.com/textpulse/sms-backend/internal/service"
)

type CampaignController struct {
    CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Name            string `json:"name"`
        MessageTemplate string `json:"message_template"`
        TargetTag       string `json:"target_tag"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    campaign, err := c.CampaignService.Create(body.Name, body.MessageTemplate, body.TargetTag)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

    campaigns, err := c.CampaignService.List(limit)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data": campaigns,
    })
}

// ActivateCampaign expands the campaign into queued messages. Responds
// 404 for an unknown id and 409 when the campaign was already started.
func (c *CampaignController) ActivateCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    queued, err := c.CampaignService.Activate(id)
    if err != nil {
        switch {
        case appErrors.IsCampaignNotFound(err):
            http.Error(w, err.Error(), http.StatusNotFound)
        case errors.Is(err, appErrors.ErrCampaignAlreadyStarted):
            http.Error(w, err.Error(), http.StatusConflict)
        default:
            http.Error(w, err.Error(), http.StatusInternalServerError)
        }
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "campaign_id":     id,
        "messages_queued": queued,
    })
}

func (c *CampaignController) GetCampaignStats(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    stats, err := c.CampaignService.Stats(id)
    if err != nil {
        if appErrors.IsCampaignNotFound(err) {
            http.Error(w, err.Error(), http.StatusNotFound)
            return
        }
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(stats)
}

func (c *CampaignController) Dashboard(w http.ResponseWriter, r *http.Request) {
    stats, err := c.CampaignService.Dashboard()
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(stats)
}
