package middleware

import (
	"net/http"

	adminauth "github.com/420website/CRM-sub000"
)

// RequirePartial admits any live session, including one still waiting on the
// second factor.
func RequirePartial(engine *adminauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, adminauth.TrustPartial)
}

// RequireFull admits only fully authenticated sessions.
func RequireFull(engine *adminauth.Engine) func(http.Handler) http.Handler {
	return Guard(engine, adminauth.TrustFull)
}
