// internal/render/render.go
package render

import (
    "strings"

    "github.com/textpulse/sms-backend/internal/model"
)

// Render substitutes the fixed placeholder set into a campaign template.
// Supported tokens: {{name}}, {{phone}}, {{tags}}. Tokens outside this set
// are left verbatim (documented limitation, not an error). Pure and safe
// for concurrent use.
func Render(template string, contact model.Contact) string {
    s := template
    s = strings.ReplaceAll(s, "{{name}}", contact.Name)
    s = strings.ReplaceAll(s, "{{phone}}", contact.Phone)
    s = strings.ReplaceAll(s, "{{tags}}", contact.Tags)
    return s
}
