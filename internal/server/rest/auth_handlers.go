package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the contact book API"})
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			writeDetail(w, http.StatusConflict, "Email already registered")
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleToken implements the OAuth2 password grant: form fields username
// (the account email) and password.
func (s *HTTPServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}

	pair, err := s.users.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.Logout(r.Context(), req.RefreshToken); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.CompleteVerification(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r.Context()))
}

// multipartOverhead leaves room for boundaries and part headers.
const multipartOverhead = 64 << 10

func (s *HTTPServer) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxAvatarSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusBadRequest, "File too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	user, err := s.users.UploadAvatar(r.Context(), currentUser(r.Context()), header.Header.Get("Content-Type"), file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
