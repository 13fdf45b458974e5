package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// multipartSlack is allowed on top of the avatar size for form overhead.
const multipartSlack = 64 << 10

// AvatarSettings is the body of the avatar settings endpoints.
type AvatarSettings struct {
	UploadRestricted *bool `json:"upload_restricted"`
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadUserID
	}
	return id, nil
}

// handleGetAvatar redirects to the avatar at the requested size.
func (s *Server) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = n
		}
	}

	u, err := s.avatars.Resolve(requestContext(r), id, size)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// handleUploadAvatar stores the "avatar" form file as the user's avatar.
func (s *Server) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	file, header, err := readUpload(w, r, "avatar", s.cfg.Avatar.MaxUploadSize+multipartSlack)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	u, err := s.avatars.Upload(requestContext(r), id, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]string{"url": u})
}

// handleDeleteAvatar removes the user's avatar.
func (s *Server) handleDeleteAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.avatars.Delete(requestContext(r), id); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetAvatarSettings(w http.ResponseWriter, r *http.Request) {
	restricted, err := s.avatars.UploadRestricted(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, AvatarSettings{UploadRestricted: &restricted})
}

func (s *Server) handleUpdateAvatarSettings(w http.ResponseWriter, r *http.Request) {
	var body AvatarSettings
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UploadRestricted == nil {
		s.respondError(w, r, errBadSettings, http.StatusBadRequest)
		return
	}

	if err := s.avatars.SetUploadRestricted(requestContext(r), *body.UploadRestricted); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, body)
}
