package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/supportchat/internal/common"
	"github.com/dmitrijs2005/supportchat/internal/server/models"
	"github.com/dmitrijs2005/supportchat/internal/server/services"
)

type registerRequest struct {
	FullName    string  `json:"fullName"`
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	Password    string  `json:"password"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUser struct {
	ID       string      `json:"id"`
	FullName string      `json:"fullName"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

type loginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    loginUser `json:"user"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionView struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type healthResponse struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Name:      apiName,
		Version:   apiVersion,
		Status:    "healthy",
		Timestamp: s.now().UTC(),
	})
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to register user")
		return
	}

	user, err := s.users.Register(r.Context(), services.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			writeJSON(w, http.StatusConflict, errorBody{Error: "Email already registered"})
			return
		}
		s.writeError(w, r, err, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered successfully", User: user})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to process login")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Email and password are required"})
		return
	}

	ip, ua := clientInfo(r)
	res, err := s.users.Login(r.Context(), req.Email, req.Password, services.ClientInfo{IP: ip, UserAgent: ua})
	if err != nil {
		s.writeError(w, r, err, "Failed to process login")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   res.Token,
		User: loginUser{
			ID:       res.User.ID,
			FullName: res.User.FullName,
			Email:    res.User.Email,
			Role:     res.User.Role,
		},
	})
}

func (s *HTTPServer) confirmEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to confirm email")
		return
	}

	if _, err := s.users.ConfirmEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Invalid or used confirmation token"})
			return
		}
		s.writeError(w, r, err, "Failed to confirm email")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Email confirmed"})
}

func (s *HTTPServer) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to request password reset")
		return
	}

	if err := s.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err, "Failed to request password reset")
		return
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Message: "If the email is registered, a reset link has been sent"})
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, "Failed to reset password")
		return
	}

	if err := s.users.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.writeError(w, r, err, "Failed to reset password")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) listSessions(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Authentication required"})
		return
	}

	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch sessions")
		return
	}

	list, err := s.sessions.ListSessions(r.Context(), id.UserID, limit)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch sessions")
		return
	}

	out := make([]sessionView, 0, len(list))
	for _, sess := range list {
		out = append(out, sessionView{
			ID:        sess.ID,
			ExpiresAt: sess.ExpiresAt,
			IPAddress: sess.IPAddress,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
