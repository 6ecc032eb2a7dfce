package server

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickienotes/quickie/internal/db"
	"github.com/quickienotes/quickie/internal/notes"
)

// Health check

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Auth handlers

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := s.db.GetUserByEmail(req.Email)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if !s.db.ValidatePassword(user, req.Password) {
		jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if !user.Active {
		jsonError(w, "user is disabled", http.StatusForbidden)
		return
	}

	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		UserID:    user.ID,
		Email:     user.Email,
	}, http.StatusOK)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, "email and password required", http.StatusBadRequest)
		return
	}

	if len(req.Password) < 8 {
		jsonError(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	existing, _ := s.db.GetUserByEmail(req.Email)
	if existing != nil {
		jsonError(w, "email already registered", http.StatusConflict)
		return
	}

	user, err := s.db.CreateUser(req.Email, req.Password)
	if err != nil {
		jsonError(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		jsonError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		UserID:    user.ID,
		Email:     user.Email,
	}, http.StatusCreated)
}

// Notes handlers

type NoteResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Attachments []notes.Attachment `json:"attachments"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
}

type NoteListResponse struct {
	Notes []NoteResponse `json:"notes"`
}

type CreateNoteRequest struct {
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Attachments []notes.Attachment `json:"attachments"`
	CreatedAt   int64              `json:"created_at"`
	UpdatedAt   int64              `json:"updated_at"`
}

type UpdateNoteRequest struct {
	Title       *string             `json:"title"`
	Content     *string             `json:"content"`
	Attachments *[]notes.Attachment `json:"attachments"`
	UpdatedAt   *int64              `json:"updated_at"`
}

func decodeAttachments(raw string) []notes.Attachment {
	var atts []notes.Attachment
	if raw != "" {
		json.Unmarshal([]byte(raw), &atts)
	}
	if atts == nil {
		atts = []notes.Attachment{}
	}
	return atts
}

func encodeAttachments(atts []notes.Attachment) string {
	if atts == nil {
		atts = []notes.Attachment{}
	}
	data, _ := json.Marshal(atts)
	return string(data)
}

func noteResponse(n db.Note) NoteResponse {
	return NoteResponse{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		Attachments: decodeAttachments(n.Attachments),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	list, err := s.db.ListNotesByUser(user.ID)
	if err != nil {
		jsonError(w, "failed to list notes", http.StatusInternalServerError)
		return
	}

	response := NoteListResponse{Notes: make([]NoteResponse, len(list))}
	for i, n := range list {
		response.Notes[i] = noteResponse(n)
	}

	jsonResponse(w, response, http.StatusOK)
}

func (s *Server) getNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")

	note, err := s.db.GetNote(noteID, user.ID)
	if err != nil {
		jsonError(w, "failed to get note", http.StatusInternalServerError)
		return
	}
	if note == nil {
		jsonError(w, "note not found", http.StatusNotFound)
		return
	}

	jsonResponse(w, noteResponse(*note), http.StatusOK)
}

func (s *Server) createNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" && req.Content == "" && len(req.Attachments) == 0 {
		jsonError(w, "note must not be empty", http.StatusBadRequest)
		return
	}

	now := time.Now().UnixMilli()
	createdAt := req.CreatedAt
	if createdAt <= 0 {
		createdAt = now
	}
	updatedAt := req.UpdatedAt
	if updatedAt <= 0 {
		updatedAt = now
	}

	note, err := s.db.CreateNote(user.ID, req.Title, req.Content, encodeAttachments(req.Attachments), createdAt, updatedAt)
	if err != nil {
		jsonError(w, "failed to save note", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, noteResponse(*note), http.StatusCreated)
}

func (s *Server) updateNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var attachments *string
	if req.Attachments != nil {
		encoded := encodeAttachments(*req.Attachments)
		attachments = &encoded
	}

	if err := s.db.UpdateNote(noteID, user.ID, req.Title, req.Content, attachments, req.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			jsonError(w, "note not found", http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update note", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")

	if err := s.db.DeleteNote(noteID, user.ID); err != nil {
		jsonError(w, "failed to delete note", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Attachment handlers

type UploadResponse struct {
	URI string `json:"uri"`
}

func (s *Server) uploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	note, err := s.db.GetNote(noteID, user.ID)
	if err != nil {
		jsonError(w, "failed to get note", http.StatusInternalServerError)
		return
	}
	if note == nil {
		jsonError(w, "note not found", http.StatusNotFound)
		return
	}

	body := http.MaxBytesReader(w, r.Body, notes.MaxAttachmentSize)
	data, err := io.ReadAll(body)
	if err != nil {
		jsonError(w, "attachment too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.db.PutBlob(noteID, name, contentType, data); err != nil {
		jsonError(w, "failed to store attachment", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, UploadResponse{URI: s.attachmentURI(noteID, name)}, http.StatusOK)
}

func (s *Server) getAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	note, err := s.db.GetNote(noteID, user.ID)
	if err != nil || note == nil {
		jsonError(w, "note not found", http.StatusNotFound)
		return
	}

	blob, err := s.db.GetBlob(noteID, name)
	if err != nil {
		jsonError(w, "failed to get attachment", http.StatusInternalServerError)
		return
	}
	if blob == nil {
		jsonError(w, "attachment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(blob.Data)
}

func (s *Server) deleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	noteID := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	note, err := s.db.GetNote(noteID, user.ID)
	if err != nil || note == nil {
		jsonError(w, "note not found", http.StatusNotFound)
		return
	}

	if err := s.db.DeleteBlob(noteID, name); err != nil {
		jsonError(w, "failed to delete attachment", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) attachmentURI(noteID, name string) string {
	return s.baseURL + "/api/notes/" + url.PathEscape(noteID) + "/attachments/" + url.PathEscape(name)
}
