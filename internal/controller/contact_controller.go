// internal/controller/contact_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "fmt"
    "html"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/textpulse/sms-backend/internal/errors"
    "github.com/textpulse/sms-backend/internal/service"
)

type ContactController struct {
    ContactService *service.ContactService
}

func (c *ContactController) CreateContact(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Name      string `json:"name"`
        Phone     string `json:"phone"`
        Tags      string `json:"tags"`
        Consented bool   `json:"consented"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    contact, err := c.ContactService.Add(body.Name, body.Phone, body.Tags, body.Consented)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(contact)
}

func (c *ContactController) ListContacts(w http.ResponseWriter, r *http.Request) {
    limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

    contacts, err := c.ContactService.List(limit)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data": contacts,
    })
}

// ImportCSV accepts a multipart upload under the "file" field with
// columns phone,name,consented,tags.
func (c *ContactController) ImportCSV(w http.ResponseWriter, r *http.Request) {
    file, _, err := r.FormFile("file")
    if err != nil {
        http.Error(w, "missing file upload", http.StatusBadRequest)
        return
    }
    defer file.Close()

    count, err := c.ContactService.ImportCSV(file)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "imported": count,
    })
}

func (c *ContactController) OptOut(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid contact id", http.StatusBadRequest)
        return
    }

    if err := c.ContactService.OptOut(id); err != nil {
        if errors.Is(err, appErrors.ErrContactNotFound) {
            http.Error(w, err.Error(), http.StatusNotFound)
            return
        }
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe is the public opt-out endpoint linked from every message
// footer. It is intentionally reachable without the admin token and
// answers unknown phones the same as known ones.
func (c *ContactController) Unsubscribe(w http.ResponseWriter, r *http.Request) {
    phone := chi.URLParam(r, "phone")

    if err := c.ContactService.Unsubscribe(phone); err != nil && !errors.Is(err, appErrors.ErrContactNotFound) {
        http.Error(w, "something went wrong", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    fmt.Fprintf(w, `<html><head><title>Unsubscribed</title></head>
<body style="font-family:system-ui;padding:24px;">
  <h2>You have been unsubscribed</h2>
  <p>We will not send further messages to <b>%s</b>.</p>
</body></html>`, html.EscapeString(phone))
}
