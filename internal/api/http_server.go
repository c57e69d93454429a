package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/logging"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	userIDHeader    = "X-Sharer-User-Id"
	requestIDHeader = "X-Request-Id"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BookingExporter renders an owner's bookings as a spreadsheet.
type BookingExporter interface {
	WriteOwnerBookings(ctx context.Context, ownerID int64, state string, w io.Writer) error
}

// Deps are the services the HTTP API dispatches to.
type Deps struct {
	Users           domain.UserService
	Items           domain.ItemService
	Bookings        domain.BookingService
	Exporter        BookingExporter
	Health          Pinger
	DefaultPageSize int
}

// HTTPServer exposes the marketplace REST API.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	log    *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if deps.DefaultPageSize <= 0 {
		deps.DefaultPageSize = models.DefaultPageSize
	}

	srv := &HTTPServer{
		cfg:  cfg,
		deps: deps,
		auth: NewHTTPAuth(&cfg),
		log:  logging.Component(logger, "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)

	mux.HandleFunc("POST /users", srv.handleCreateUser)
	mux.HandleFunc("GET /users", srv.handleListUsers)
	mux.HandleFunc("GET /users/{id}", srv.handleGetUser)
	mux.HandleFunc("PATCH /users/{id}", srv.handleUpdateUser)
	mux.HandleFunc("DELETE /users/{id}", srv.handleDeleteUser)

	mux.HandleFunc("POST /items", srv.withUser(srv.handleCreateItem))
	mux.HandleFunc("GET /items", srv.withUser(srv.handleListItems))
	mux.HandleFunc("GET /items/search", srv.handleSearchItems)
	mux.HandleFunc("GET /items/{id}", srv.withUser(srv.handleGetItem))
	mux.HandleFunc("PATCH /items/{id}", srv.withUser(srv.handleUpdateItem))
	mux.HandleFunc("POST /items/{id}/comment", srv.withUser(srv.handleAddComment))

	mux.HandleFunc("POST /bookings", srv.withUser(srv.handleCreateBooking))
	mux.HandleFunc("GET /bookings", srv.withUser(srv.handleListRenterBookings))
	mux.HandleFunc("GET /bookings/owner", srv.withUser(srv.handleListOwnerBookings))
	mux.HandleFunc("GET /bookings/{id}", srv.withUser(srv.handleGetBooking))
	mux.HandleFunc("PATCH /bookings/{id}", srv.withUser(srv.handleDecideBooking))
	if deps.Exporter != nil {
		mux.HandleFunc("GET /bookings/owner/export", srv.withUser(srv.handleExportOwnerBookings))
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(srv.auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// withUser resolves the caller from the X-Sharer-User-Id header.
func (s *HTTPServer) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(userIDHeader))
		if raw == "" {
			writeError(w, http.StatusBadRequest, userIDHeader+" header is required")
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid "+userIDHeader+" header")
			return
		}
		next(w, r, userID)
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health.PingContext(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, err := s.deps.Users.CreateUser(r.Context(), body.Name, body.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(user))
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users.GetAllUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := s.deps.Users.GetUserByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	user, err := s.deps.Users.UpdateUser(r.Context(), id, models.UserPatch{Name: body.Name, Email: body.Email})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Users.DeleteUser(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request, userID int64) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Available   *bool  `json:"available"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Available == nil {
		writeError(w, http.StatusBadRequest, "available is required")
		return
	}

	item, err := s.deps.Items.CreateItem(r.Context(), userID, &models.Item{
		Name:        body.Name,
		Description: body.Description,
		Available:   *body.Available,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPlainItemView(item))
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Available   *bool   `json:"available"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	item, err := s.deps.Items.UpdateItem(r.Context(), userID, id, models.ItemPatch{
		Name:        body.Name,
		Description: body.Description,
		Available:   body.Available,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlainItemView(item))
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := s.deps.Items.GetItem(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(view))
}

func (s *HTTPServer) handleListItems(w http.ResponseWriter, r *http.Request, userID int64) {
	page, ok := s.pageParams(w, r)
	if !ok {
		return
	}
	views, err := s.deps.Items.ListOwnItems(r.Context(), userID, page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]itemView, 0, len(views))
	for _, v := range views {
		out = append(out, newItemView(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	page, ok := s.pageParams(w, r)
	if !ok {
		return
	}
	items, err := s.deps.Items.Search(r.Context(), r.URL.Query().Get("text"), page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]plainItemView, 0, len(items))
	for _, it := range items {
		out = append(out, newPlainItemView(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	comment, err := s.deps.Items.AddComment(r.Context(), userID, id, body.Text)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCommentView(comment))
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, userID int64) {
	var body struct {
		ItemID int64  `json:"itemId"`
		Start  string `json:"start"`
		End    string `json:"end"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}
	start, err := parseTime(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := parseTime(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}

	booking, err := s.deps.Bookings.Create(r.Context(), userID, body.ItemID, start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBookingView(booking))
}

func (s *HTTPServer) handleDecideBooking(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "approved must be true or false")
		return
	}

	booking, err := s.deps.Bookings.Decide(r.Context(), userID, id, approved)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(booking))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, userID int64) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	booking, err := s.deps.Bookings.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(booking))
}

func (s *HTTPServer) handleListRenterBookings(w http.ResponseWriter, r *http.Request, userID int64) {
	s.listBookings(w, r, userID, s.deps.Bookings.ListForRenter)
}

func (s *HTTPServer) handleListOwnerBookings(w http.ResponseWriter, r *http.Request, userID int64) {
	s.listBookings(w, r, userID, s.deps.Bookings.ListForOwner)
}

type listFunc func(ctx context.Context, userID int64, state string, page models.Page) ([]*models.Booking, error)

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request, userID int64, list listFunc) {
	page, ok := s.pageParams(w, r)
	if !ok {
		return
	}
	bookings, err := list(r.Context(), userID, r.URL.Query().Get("state"), page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingViews(bookings))
}

func (s *HTTPServer) handleExportOwnerBookings(w http.ResponseWriter, r *http.Request, userID int64) {
	var buf bytes.Buffer
	if err := s.deps.Exporter.WriteOwnerBookings(r.Context(), userID, r.URL.Query().Get("state"), &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	fileName := fmt.Sprintf("bookings_owner_%d.xlsx", userID)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) pageParams(w http.ResponseWriter, r *http.Request) (models.Page, bool) {
	page := models.Page{From: 0, Size: s.deps.DefaultPageSize}
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidPage.Error())
			return page, false
		}
		page.From = v
	}
	if raw := q.Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.ErrInvalidPage.Error())
			return page, false
		}
		page.Size = v
	}
	return page, true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrUnsupportedState) {
		writeError(w, http.StatusBadRequest, "Unknown state: "+r.URL.Query().Get("state"))
		return
	}

	code, msg := httpStatus(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, code, msg)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
