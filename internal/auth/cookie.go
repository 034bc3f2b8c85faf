package auth

import (
	"net/http"
)

const (
	SessionCookieName     = "synapso_session"
	ImpersonateCookieName = "synapso_impersonate"
)

func (s *CookieSigner) cookie(name, value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge > 0 {
		c.Expires = s.now().Add(s.ttl)
	}
	return c
}

// SetSessionCookie signs a session for userID and sets it on the response.
func (s *CookieSigner) SetSessionCookie(w http.ResponseWriter, userID string) error {
	token, err := s.SignSession(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.cookie(SessionCookieName, token, int(s.ttl.Seconds())))
	return nil
}

// SetImpersonationCookie signs an impersonation of targetID by adminID and sets it on the response.
func (s *CookieSigner) SetImpersonationCookie(w http.ResponseWriter, adminID, targetID string) error {
	token, err := s.SignImpersonation(adminID, targetID)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.cookie(ImpersonateCookieName, token, int(s.ttl.Seconds())))
	return nil
}

// ClearSessionCookie expires the session cookie.
func (s *CookieSigner) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(SessionCookieName, "", -1))
}

// ClearImpersonationCookie expires the impersonation cookie.
func (s *CookieSigner) ClearImpersonationCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(ImpersonateCookieName, "", -1))
}

// SessionFromRequest validates the session cookie of the request.
// Returns ErrMissingToken when there is none.
func (s *CookieSigner) SessionFromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", ErrMissingToken
	}
	return s.ValidateSession(c.Value)
}

// ImpersonationFromRequest validates the impersonation cookie of the request.
// Returns ErrMissingToken when there is none.
func (s *CookieSigner) ImpersonationFromRequest(r *http.Request) (*Impersonation, error) {
	c, err := r.Cookie(ImpersonateCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrMissingToken
	}
	return s.ValidateImpersonation(c.Value)
}
