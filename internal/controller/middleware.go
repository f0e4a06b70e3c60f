// internal/controller/middleware.go
package controller

import "net/http"

// RequireAdmin guards the admin API with a shared token, accepted either
// as the x-admin-token header or a token query parameter (the dashboard
// links carry it in the query string).
func RequireAdmin(token string) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            got := r.Header.Get("x-admin-token")
            if got == "" {
                got = r.URL.Query().Get("token")
            }
            if got == "" || got != token {
                http.Error(w, "Unauthorized", http.StatusUnauthorized)
                return
            }
            next.ServeHTTP(w, r)
        })
    }
}
