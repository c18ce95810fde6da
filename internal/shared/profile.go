package shared

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ProfileCookie names the long-lived browser profile cookie.
const ProfileCookie = "gatrix_profile"

// ProfileManager identifies a browser profile. Console preferences are keyed
// by profile, so they survive sessions the same way browser storage does.
type ProfileManager struct {
	ttl    time.Duration
	secure bool
}

func NewProfileManager(ttl time.Duration, secure bool) *ProfileManager {
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &ProfileManager{ttl: ttl, secure: secure}
}

// Ensure returns the request's profile id, issuing a cookie for new browsers.
func (pm *ProfileManager) Ensure(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ProfileCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ProfileCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(pm.ttl.Seconds()),
		HttpOnly: true,
		Secure:   pm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Middleware stores the profile id in the request context.
func (pm *ProfileManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile := pm.Ensure(w, r)
		next.ServeHTTP(w, r.WithContext(ContextWithProfile(r.Context(), profile)))
	})
}
