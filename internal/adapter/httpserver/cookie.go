package httpserver

import (
	"net/http"
	"time"
)

// cookiePolicy carries the Secure/SameSite attributes shared by every
// session cookie this server issues (§6: "name=value; HttpOnly; Path=/;
// Max-Age=<secs>; [Secure;] SameSite=<Lax|Strict|None>").
type cookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

func sameSiteFromString(s string) http.SameSite {
	switch s {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// setCookie issues name=value with the policy's attributes and a Max-Age
// matching ttl.
func setCookie(w http.ResponseWriter, policy cookiePolicy, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: policy.SameSite,
	})
}

// clearCookie issues name with an empty value and Max-Age=0, so the
// client discards it immediately.
func clearCookie(w http.ResponseWriter, policy cookiePolicy, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: policy.SameSite,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
