package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tdnguyen/roomchat/internal/common"
	"github.com/tdnguyen/roomchat/internal/server/models"
	"github.com/tdnguyen/roomchat/internal/server/services"
)

// Timestamps cross the wire as Unix milliseconds, matching the watermark the
// client sends back in last_check.

type messageDTO struct {
	ID         int64              `json:"id"`
	UserID     int64              `json:"user_id"`
	Username   string             `json:"username"`
	Content    string             `json:"content"`
	Timestamp  int64              `json:"timestamp"`
	EditedAt   *int64             `json:"edited_at"`
	Reactions  models.ReactionMap `json:"reactions"`
	QuotedID   *int64             `json:"quoted_message_id,omitempty"`
	QuotedUser *string            `json:"quoted_author,omitempty"`
	QuotedText *string            `json:"quoted_content,omitempty"`
}

type fileDTO struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	StorageName  string `json:"storage_name"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	UploadTime   int64  `json:"upload_time"`
}

func toMessageDTO(m *models.Message) messageDTO {
	dto := messageDTO{
		ID:         m.ID,
		UserID:     m.UserID,
		Username:   m.AuthorName,
		Content:    m.Content,
		Timestamp:  m.Timestamp.UnixMilli(),
		Reactions:  m.Reactions,
		QuotedID:   m.QuotedMessageID,
		QuotedUser: m.QuotedAuthor,
		QuotedText: m.QuotedContent,
	}
	if m.EditedAt != nil {
		ms := m.EditedAt.UnixMilli()
		dto.EditedAt = &ms
	}
	return dto
}

func toMessageDTOs(msgs []*models.Message) []messageDTO {
	result := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, toMessageDTO(m))
	}
	return result
}

func toFileDTO(f *models.File) fileDTO {
	return fileDTO{
		ID:           f.ID,
		UserID:       f.UserID,
		Username:     f.UploaderName,
		StorageName:  f.StorageName,
		OriginalName: f.OriginalName,
		FileType:     f.FileType,
		FileSize:     f.FileSize,
		UploadTime:   f.UploadTime.UnixMilli(),
	}
}

func toFileDTOs(files []*models.File) []fileDTO {
	result := make([]fileDTO, 0, len(files))
	for _, f := range files {
		result = append(result, toFileDTO(f))
	}
	return result
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrPermission):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, common.ErrValidation
	}
	return id, nil
}

// parseWatermark reads last_check as Unix milliseconds. Missing or zero
// means "everything", i.e. the zero time.
func parseWatermark(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("last_check")
	if raw == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, common.ErrValidation
	}
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// an admin's first login of the day triggers the retention sweep
	if _, err := s.retention.MaybeSweep(r.Context(), user.ID); err != nil {
		s.logger.Error(r.Context(), "retention sweep failed", "error", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"is_admin": user.IsAdmin,
		},
	})
}

func (s *HTTPServer) handleDelta(w http.ResponseWriter, r *http.Request) {
	watermark, err := parseWatermark(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	delta, err := s.delta.Delta(r.Context(), watermark)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if delta.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages":        toMessageDTOs(delta.Messages),
		"files":           toFileDTOs(delta.Files),
		"edited_messages": toMessageDTOs(delta.Edited),
	})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages, files, err := s.delta.History(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages": toMessageDTOs(messages),
		"files":    toFileDTOs(files),
	})
}

func (s *HTTPServer) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	var req struct {
		Content  string `json:"content"`
		QuotedID *int64 `json:"quoted_message_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	msg, err := s.messages.Post(r.Context(), uid, req.Content, req.QuotedID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toMessageDTO(msg))
}

func (s *HTTPServer) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	msg, err := s.messages.Edit(r.Context(), uid, id, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toMessageDTO(msg))
}

func (s *HTTPServer) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.messages.Delete(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleToggleReaction(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	reactions, err := s.messages.ToggleReaction(r.Context(), uid, id, req.Emoji)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"reactions": reactions})
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	var uploads []services.Upload
	var open []io.Closer
	defer func() {
		for _, c := range open {
			_ = c.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, common.ErrValidation)
			return
		}
		open = append(open, f)
		uploads = append(uploads, services.Upload{Name: fh.Filename, Data: f})
	}

	accepted, err := s.files.UploadBatch(r.Context(), uid, uploads)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"files": toFileDTOs(accepted)})
}

func (s *HTTPServer) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.files.DeleteFile(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleServeBlob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	rc, err := s.files.Open(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	_, _ = io.Copy(w, rc)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	list, err := s.users.ListUsers(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type userDTO struct {
		ID        int64  `json:"id"`
		Username  string `json:"username"`
		LastLogin *int64 `json:"last_login"`
	}
	result := make([]userDTO, 0, len(list))
	for _, u := range list {
		dto := userDTO{ID: u.ID, Username: u.Username}
		if u.LastLogin != nil {
			ms := u.LastLogin.UnixMilli()
			dto.LastLogin = &ms
		}
		result = append(result, dto)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"users": result})
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	user, err := s.users.CreateUser(r.Context(), uid, req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, common.ErrValidation)
		return
	}

	if err := s.users.UpdateUser(r.Context(), uid, id, req.Username, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := userID(r.Context())

	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.DeleteUser(r.Context(), uid, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
