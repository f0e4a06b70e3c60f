// cmd/server/main.go
package main

import (
    "context"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/rs/zerolog"

    "github.com/textpulse/sms-backend/internal/audit"
    "github.com/textpulse/sms-backend/internal/config"
    "github.com/textpulse/sms-backend/internal/controller"
    "github.com/textpulse/sms-backend/internal/db"
    "github.com/textpulse/sms-backend/internal/dispatch"
    "github.com/textpulse/sms-backend/internal/gateway"
    "github.com/textpulse/sms-backend/internal/queue"
    "github.com/textpulse/sms-backend/internal/repository"
    "github.com/textpulse/sms-backend/internal/service"
)

func main() {
    cfg, err := config.LoadFromEnv("config.yaml")
    if err != nil {
        panic(err)
    }

    log := newLogger(cfg.App.LogLevel)

    conn, err := db.Open(cfg.Database.URL)
    if err != nil {
        log.Fatal().Err(err).Msg("database connection failed")
    }
    defer conn.Close()

    if err := db.Migrate(conn); err != nil {
        log.Fatal().Err(err).Msg("migration failed")
    }

    contactRepo := &repository.ContactRepository{DB: conn}
    campaignRepo := &repository.CampaignRepository{DB: conn}
    messageRepo := &repository.MessageRepository{DB: conn}
    auditRepo := &repository.AuditRepository{DB: conn}

    var q queue.Queue
    if cfg.Audit.AMQPURL != "" {
        aq, err := queue.DialAMQP(cfg.Audit.AMQPURL)
        if err != nil {
            log.Fatal().Err(err).Msg("amqp connection failed")
        }
        defer aq.Close()
        q = aq
    } else {
        q = queue.NewInMemoryQueue(log)
    }

    if err := audit.StartWriter(q, auditRepo, log); err != nil {
        log.Fatal().Err(err).Msg("audit writer failed to start")
    }
    recorder := audit.NewRecorder(q, log)

    gw := gateway.New(cfg.Provider)

    dispatcher := &dispatch.Dispatcher{
        Messages:  messageRepo,
        Campaigns: campaignRepo,
        Gateway:   gw,
        Audit:     recorder,
        Cfg: dispatch.Config{
            RatePerTick: cfg.Dispatch.RatePerTick,
            DailyCap:    cfg.Dispatch.DailyCapPerContact,
            TickPeriod:  cfg.Dispatch.TickPeriod(),
            Timezone:    cfg.Dispatch.Location(),
        },
        Log: log,
    }

    if err := dispatcher.Recover(); err != nil {
        log.Fatal().Err(err).Msg("startup recovery failed")
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    go dispatcher.Run(ctx)

    campaignService := &service.CampaignService{
        CampaignRepo:  campaignRepo,
        ContactRepo:   contactRepo,
        MessageRepo:   messageRepo,
        Audit:         recorder,
        PublicBaseURL: cfg.App.PublicBaseURL,
        Log:           log,
    }
    contactService := &service.ContactService{
        ContactRepo: contactRepo,
        Audit:       recorder,
        Log:         log,
    }

    campaignController := &controller.CampaignController{CampaignService: campaignService}
    contactController := &controller.ContactController{ContactService: contactService}

    r := chi.NewRouter()

    // Public opt-out link, printed in every message footer.
    r.Get("/u/{phone}", contactController.Unsubscribe)

    r.Group(func(r chi.Router) {
        r.Use(controller.RequireAdmin(cfg.App.AdminToken))

        r.Post("/contacts", contactController.CreateContact)
        r.Get("/contacts", contactController.ListContacts)
        r.Post("/contacts/import", contactController.ImportCSV)
        r.Post("/contacts/{id}/optout", contactController.OptOut)

        r.Post("/campaigns", campaignController.CreateCampaign)
        r.Get("/campaigns", campaignController.ListCampaigns)
        r.Post("/campaigns/{id}/activate", campaignController.ActivateCampaign)
        r.Get("/campaigns/{id}", campaignController.GetCampaignStats)

        r.Get("/dashboard", campaignController.Dashboard)
    })

    srv := &http.Server{
        Addr:    cfg.App.Addr,
        Handler: r,
    }

    go func() {
        log.Info().Str("addr", cfg.App.Addr).Str("app", cfg.App.Name).Msg("server starting")
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("server failed")
        }
    }()

    <-ctx.Done()
    log.Info().Msg("shutting down")

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        log.Error().Err(err).Msg("shutdown error")
    }
}

func newLogger(level string) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(level)
    if err != nil || level == "" {
        lvl = zerolog.InfoLevel
    }
    return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
        Level(lvl).
        With().Timestamp().Logger()
}
