package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	adminauth "github.com/420website/CRM-sub000"
)

// requestContext tags the request context with the caller's address so audit
// events carry it.
func requestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return adminauth.WithClientIP(r.Context(), host)
}

func decode(r *http.Request, into any) error {
	return json.NewDecoder(r.Body).Decode(into)
}

type verifyPINRequest struct {
	PIN string `json:"pin"`
}

type verifyPINResponse struct {
	Valid                bool   `json:"valid"`
	SecondFactorRequired bool   `json:"secondFactorRequired"`
	SecondFactorEmail    string `json:"secondFactorEmail,omitempty"`
	SessionToken         string `json:"sessionToken,omitempty"`
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	var req verifyPINRequest
	if err := decode(r, &req); err != nil || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "missing pin")
		return
	}

	result, err := s.engine.VerifyPrimary(requestContext(r), req.PIN)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyPINResponse{
		Valid:                true,
		SecondFactorRequired: result.SecondFactorRequired,
		SecondFactorEmail:    result.SecondFactorEmail,
		SessionToken:         result.Session.Token,
	})
}

type setupRequest struct {
	SessionToken string `json:"sessionToken"`
}

type setupResponse struct {
	SetupRequired bool   `json:"setupRequired"`
	Email         string `json:"email,omitempty"`
	Message       string `json:"message"`
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decode(r, &req); err != nil || req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, "missing sessionToken")
		return
	}

	ctx := requestContext(r)
	if _, err := s.engine.Validate(ctx, req.SessionToken, adminauth.TrustPartial); err != nil {
		s.writeEngineError(w, err)
		return
	}

	status, err := s.engine.SecondFactorStatus(ctx)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	resp := setupResponse{SetupRequired: !status.Enabled}
	if status.Enabled {
		resp.Email = status.Email
		resp.Message = "second factor active"
	} else {
		resp.Message = "bind an email address and verify a code to activate the second factor"
	}
	writeJSON(w, http.StatusOK, resp)
}

type setEmailRequest struct {
	SessionToken string `json:"sessionToken"`
	Email        string `json:"email"`
}

func (s *Server) handleSetEmail(w http.ResponseWriter, r *http.Request) {
	var req setEmailRequest
	if err := decode(r, &req); err != nil || req.SessionToken == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing sessionToken or email")
		return
	}

	if err := s.engine.BindSecondFactorEmail(requestContext(r), req.SessionToken, req.Email); err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "email staged; verify a code to activate the second factor",
	})
}

type sendCodeRequest struct {
	SessionToken string `json:"sessionToken"`
}

type sendCodeResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ExpiresInMinutes int    `json:"expiresInMinutes"`
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decode(r, &req); err != nil || req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, "missing sessionToken")
		return
	}

	result, err := s.engine.SendCode(requestContext(r), req.SessionToken)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	resp := sendCodeResponse{
		Success:          true,
		ExpiresInMinutes: int(result.ExpiresIn.Minutes()),
	}
	if result.Delivered {
		resp.Message = "verification code sent"
	} else {
		// The code is persisted and valid even when delivery failed, so the
		// operator can request a resend without invalidating anything.
		resp.Message = "code issued but delivery may have failed; request a resend if it does not arrive"
	}
	writeJSON(w, http.StatusOK, resp)
}

type verifyCodeRequest struct {
	SessionToken string `json:"sessionToken"`
	Code         string `json:"code"`
}

type verifyCodeResponse struct {
	Success      bool   `json:"success"`
	SessionToken string `json:"sessionToken"`
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decode(r, &req); err != nil || req.SessionToken == "" || req.Code == "" {
		writeError(w, http.StatusUnprocessableEntity, "malformed request")
		return
	}

	result, err := s.engine.VerifyCode(requestContext(r), req.SessionToken, req.Code)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyCodeResponse{
		Success:      true,
		SessionToken: result.Session.Token,
	})
}

type disableRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	var req disableRequest
	if err := decode(r, &req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	if err := s.engine.DisableSecondFactor(requestContext(r), req.Code); err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type logoutRequest struct {
	SessionToken string `json:"sessionToken"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decode(r, &req); err != nil || req.SessionToken == "" {
		writeError(w, http.StatusBadRequest, "missing sessionToken")
		return
	}

	if err := s.engine.Logout(requestContext(r), req.SessionToken); err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type changePINRequest struct {
	SessionToken string `json:"sessionToken"`
	NewPIN       string `json:"newPin"`
}

func (s *Server) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	var req changePINRequest
	if err := decode(r, &req); err != nil || req.SessionToken == "" || req.NewPIN == "" {
		writeError(w, http.StatusBadRequest, "missing sessionToken or newPin")
		return
	}

	if err := s.engine.ChangePrimarySecret(requestContext(r), req.SessionToken, req.NewPIN); err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
