// internal/service/contact_service.go
package service

import (
    "encoding/csv"
    "fmt"
    "io"
    "strings"

    "github.com/rs/zerolog"

    "github.com/textpulse/sms-backend/internal/model"
    "github.com/textpulse/sms-backend/internal/repository"
)

type ContactService struct {
    ContactRepo repository.ContactRepositoryInterface
    Audit       Auditor
    Log         zerolog.Logger
}

// Add upserts a single contact keyed by phone. Consent is merged
// monotonically by the repository: an existing consented contact stays
// consented even if the new row says otherwise.
func (s *ContactService) Add(name, phone, tags string, consented bool) (*model.Contact, error) {
    phone = strings.TrimSpace(phone)
    if phone == "" {
        return nil, fmt.Errorf("phone cannot be empty")
    }

    c := &model.Contact{
        Name:      strings.TrimSpace(name),
        Phone:     phone,
        Tags:      strings.TrimSpace(tags),
        Consented: consented,
    }
    if err := s.ContactRepo.Upsert(c); err != nil {
        return nil, err
    }
    s.Audit.Record("contact_added", c.Phone)
    return c, nil
}

// ImportCSV reads rows with columns phone,name,consented,tags (header row
// required, column order free) and upserts each. Rows without a phone are
// skipped. Returns the number of rows imported.
func (s *ContactService) ImportCSV(r io.Reader) (int, error) {
    reader := csv.NewReader(r)
    reader.FieldsPerRecord = -1
    reader.TrimLeadingSpace = true

    header, err := reader.Read()
    if err != nil {
        if err == io.EOF {
            return 0, fmt.Errorf("csv is empty")
        }
        return 0, fmt.Errorf("reading csv header: %w", err)
    }

    col := map[string]int{}
    for i, name := range header {
        col[strings.ToLower(strings.TrimSpace(name))] = i
    }
    if _, ok := col["phone"]; !ok {
        return 0, fmt.Errorf("csv is missing the phone column")
    }

    field := func(record []string, name string) string {
        i, ok := col[name]
        if !ok || i >= len(record) {
            return ""
        }
        return strings.TrimSpace(record[i])
    }

    count := 0
    for {
        record, err := reader.Read()
        if err == io.EOF {
            break
        }
        if err != nil {
            return count, fmt.Errorf("reading csv row: %w", err)
        }

        phone := field(record, "phone")
        if phone == "" {
            continue
        }

        c := &model.Contact{
            Name:      field(record, "name"),
            Phone:     phone,
            Tags:      field(record, "tags"),
            Consented: truthy(field(record, "consented")),
        }
        if err := s.ContactRepo.Upsert(c); err != nil {
            s.Log.Warn().Err(err).Str("phone", phone).Msg("skipping csv row")
            continue
        }
        count++
    }

    s.Audit.Record("contacts_import_csv", fmt.Sprintf("count=%d", count))
    return count, nil
}

func truthy(v string) bool {
    switch strings.ToLower(strings.TrimSpace(v)) {
    case "1", "true", "yes", "y":
        return true
    }
    return false
}

func (s *ContactService) List(limit int) ([]model.Contact, error) {
    if limit < 1 || limit > 500 {
        limit = 500
    }
    return s.ContactRepo.List(limit)
}

// OptOut is the operator action from the admin surface.
func (s *ContactService) OptOut(id int) error {
    if err := s.ContactRepo.OptOut(id); err != nil {
        return err
    }
    s.Audit.Record("contact_optout_admin", fmt.Sprintf("id=%d", id))
    return nil
}

// Unsubscribe is the public opt-out reached from the message footer link.
func (s *ContactService) Unsubscribe(phone string) error {
    if err := s.ContactRepo.OptOutByPhone(phone); err != nil {
        return err
    }
    s.Audit.Record("contact_optout_public", phone)
    return nil
}
