// internal/service/campaign_service.go
package service

import (
    "fmt"
    "net/url"
    "strings"
    "time"

    "github.com/rs/zerolog"

    "github.com/textpulse/sms-backend/internal/model"
    "github.com/textpulse/sms-backend/internal/render"
    "github.com/textpulse/sms-backend/internal/repository"
)

// Auditor is the fire-and-forget audit sink.
type Auditor interface {
    Record(action, meta string)
}

type CampaignService struct {
    CampaignRepo  repository.CampaignRepositoryInterface
    ContactRepo   repository.ContactRepositoryInterface
    MessageRepo   repository.MessageRepositoryInterface
    Audit         Auditor
    PublicBaseURL string
    Log           zerolog.Logger
}

// CampaignStats is the operator view of one campaign: per-status counts
// plus the latest messages (where per-message error text is inspected).
type CampaignStats struct {
    Campaign model.Campaign  `json:"campaign"`
    Counts   map[string]int  `json:"counts"`
    Recent   []model.Message `json:"recent_messages"`
}

// DashboardStats aggregates the landing-page numbers.
type DashboardStats struct {
    Contacts  int            `json:"contacts"`
    OptedOut  int            `json:"opted_out"`
    Campaigns int            `json:"campaigns"`
    Messages  map[string]int `json:"messages"`
}

func (s *CampaignService) Create(name, messageTemplate, targetTag string) (*model.Campaign, error) {
    name = strings.TrimSpace(name)
    messageTemplate = strings.TrimSpace(messageTemplate)
    if name == "" {
        return nil, fmt.Errorf("campaign name cannot be empty")
    }
    if messageTemplate == "" {
        return nil, fmt.Errorf("message template cannot be empty")
    }

    c := &model.Campaign{
        Name:            name,
        MessageTemplate: messageTemplate,
        TargetTag:       strings.TrimSpace(targetTag),
    }
    if err := s.CampaignRepo.Create(c); err != nil {
        return nil, err
    }
    s.Audit.Record("campaign_created", fmt.Sprintf("id=%d", c.ID))
    return c, nil
}

func (s *CampaignService) List(limit int) ([]model.Campaign, error) {
    if limit < 1 || limit > 200 {
        limit = 200
    }
    return s.CampaignRepo.List(limit)
}

// Activate expands a campaign into one queued message per matching
// recipient and sets the start time. Returns the number of messages
// enqueued. A campaign that was already started is rejected rather than
// expanded twice. A campaign with zero matching recipients still starts
// (and completes on the next dispatch tick).
func (s *CampaignService) Activate(campaignID int) (int, error) {
    camp, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return 0, err
    }

    if err := s.CampaignRepo.MarkStarted(campaignID, time.Now()); err != nil {
        return 0, err
    }

    recipients, err := s.ContactRepo.ListRecipients(camp.TargetTag)
    if err != nil {
        return 0, err
    }

    queued := 0
    for _, contact := range recipients {
        body := strings.TrimSpace(render.Render(camp.MessageTemplate, contact))
        body += "\nOpt out: " + s.unsubscribeURL(contact.Phone)

        msg := &model.Message{
            CampaignID: campaignID,
            ContactID:  contact.ID,
            ToPhone:    contact.Phone,
            Body:       body,
            Status:     model.StatusQueued,
        }
        if err := s.MessageRepo.Insert(msg); err != nil {
            s.Log.Error().Err(err).Int("campaign", campaignID).Int("contact", contact.ID).
                Msg("enqueueing message failed")
            continue
        }
        queued++
    }

    s.Audit.Record("campaign_started", fmt.Sprintf("id=%d,queued=%d", campaignID, queued))
    s.Log.Info().Int("campaign", campaignID).Int("queued", queued).Msg("campaign activated")
    return queued, nil
}

// unsubscribeURL builds the per-contact opt-out link appended to every
// message body.
func (s *CampaignService) unsubscribeURL(phone string) string {
    return strings.TrimRight(s.PublicBaseURL, "/") + "/u/" + url.PathEscape(phone)
}

func (s *CampaignService) Stats(campaignID int) (*CampaignStats, error) {
    camp, err := s.CampaignRepo.GetByID(campaignID)
    if err != nil {
        return nil, err
    }
    counts, err := s.MessageRepo.StatusCounts(campaignID)
    if err != nil {
        return nil, err
    }
    recent, err := s.MessageRepo.RecentByCampaign(campaignID, 50)
    if err != nil {
        return nil, err
    }
    return &CampaignStats{Campaign: *camp, Counts: counts, Recent: recent}, nil
}

func (s *CampaignService) Dashboard() (*DashboardStats, error) {
    contacts, optedOut, err := s.ContactRepo.Counts()
    if err != nil {
        return nil, err
    }
    campaigns, err := s.CampaignRepo.Count()
    if err != nil {
        return nil, err
    }
    messages, err := s.MessageRepo.CountsByStatus()
    if err != nil {
        return nil, err
    }
    return &DashboardStats{
        Contacts:  contacts,
        OptedOut:  optedOut,
        Campaigns: campaigns,
        Messages:  messages,
    }, nil
}
