package main

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = &authcore.Error{Kind: authcore.KindValidation, Message: "Malformed request body."}

func newRouter(engine *authcore.Engine, metrics http.Handler) http.Handler {
	gate := middleware.Authenticate(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", registerHandler(engine))
	mux.HandleFunc("POST /auth/verify", verifyHandler(engine))
	mux.HandleFunc("POST /auth/login", loginHandler(engine))
	mux.HandleFunc("POST /auth/login/otp/generate", requestLoginOTPHandler(engine))
	mux.HandleFunc("POST /auth/login/otp", loginOTPHandler(engine))
	mux.HandleFunc("POST /auth/refresh", refreshHandler(engine))
	mux.Handle("POST /auth/logout", gate(logoutHandler(engine)))
	mux.HandleFunc("POST /auth/forgot-password", forgotPasswordHandler(engine))
	mux.HandleFunc("POST /auth/reset-password", resetPasswordHandler(engine))
	mux.Handle("GET /auth/me", gate(http.HandlerFunc(meHandler(engine))))
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return middleware.ClientIP(mux)
}

// decode reads a JSON body into dst and reports malformed input itself.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		authcore.RespondError(w, errMalformedBody)
		return false
	}
	return true
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func registerHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body authcore.RegisterInput
		if !decode(w, r, &body) {
			return
		}
		p, err := engine.Register(r.Context(), body)
		if err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusCreated, map[string]any{"user": p})
	}
}

func verifyHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body codeRequest
		if !decode(w, r, &body) {
			return
		}
		if err := engine.VerifyAccount(r.Context(), body.Email, body.Code); err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, nil)
	}
}

func loginHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsRequest
		if !decode(w, r, &body) {
			return
		}
		res, err := engine.LoginWithPassword(r.Context(), body.Email, body.Password)
		if err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, res)
	}
}

func requestLoginOTPHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body emailRequest
		if !decode(w, r, &body) {
			return
		}
		if err := engine.RequestLoginOTP(r.Context(), body.Email); err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, nil)
	}
}

func loginOTPHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body codeRequest
		if !decode(w, r, &body) {
			return
		}
		res, err := engine.LoginWithOTP(r.Context(), body.Email, body.Code)
		if err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, res)
	}
}

func refreshHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if !decode(w, r, &body) {
			return
		}
		pair, err := engine.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, map[string]any{"tokens": pair})
	}
}

// logoutHandler runs behind the gate. The body may name the access token;
// otherwise the bearer token that passed the gate is used.
func logoutHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body logoutRequest
		if !decode(w, r, &body) {
			return
		}
		access := body.AccessToken
		if access == "" {
			access, _ = middleware.AccessTokenFromContext(r.Context())
		}
		if err := engine.Logout(r.Context(), access, body.RefreshToken); err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, nil)
	}
}

func forgotPasswordHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body emailRequest
		if !decode(w, r, &body) {
			return
		}
		if err := engine.ForgotPassword(r.Context(), body.Email); err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, nil)
	}
}

func resetPasswordHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body resetRequest
		if !decode(w, r, &body) {
			return
		}
		if err := engine.ResetPassword(r.Context(), body.Email, body.Code, body.NewPassword); err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, nil)
	}
}

func meHandler(engine *authcore.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := middleware.PrincipalFromContext(r.Context())
		p, err := engine.Principal(r.Context(), id)
		if err != nil {
			authcore.RespondError(w, err)
			return
		}
		authcore.Respond(w, http.StatusOK, map[string]any{"user": p})
	}
}
