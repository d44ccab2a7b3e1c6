package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/passportpix/passportpix/internal/domain"
	"github.com/passportpix/passportpix/internal/queue"
	"github.com/passportpix/passportpix/internal/store"
	"github.com/passportpix/passportpix/internal/workflow"
)

// Server exposes the wizard over HTTP. Each session is server-held;
// the handlers translate requests into session events and render the
// resulting snapshot.
type Server struct {
	logger      *log.Logger
	sessions    *workflow.Registry
	vault       photoVault
	orders      store.OrderStore
	queueClient queueEnqueuer
	payments    paymentVerifier
	downloadTTL time.Duration

	rateLimiter           RateLimiter
	rateLimitUserIDHeader string

	metrics *metrics
	tracer  trace.Tracer
	mux     *http.ServeMux
}

type queueEnqueuer interface {
	EnqueueDeliverPhoto(ctx context.Context, payload queue.DeliverPhotoPayload) (*asynq.TaskInfo, error)
}

type photoVault interface {
	StorePhoto(ctx context.Context, data []byte) (string, error)
	PresignedDownloadURL(ctx context.Context, photoID string, expiry time.Duration) (string, error)
}

type paymentVerifier interface {
	VerifyOrder(ctx context.Context, orderID string) (domain.PaymentState, error)
}

type Options struct {
	Logger      *log.Logger
	Sessions    *workflow.Registry
	Vault       photoVault
	Orders      store.OrderStore
	Queue       queueEnqueuer
	Payments    paymentVerifier
	DownloadTTL time.Duration
	RateLimiter RateLimiter
	UserHeader  string
}

func NewServer(opts Options) *Server {
	if opts.DownloadTTL <= 0 {
		opts.DownloadTTL = 15 * time.Minute
	}
	if opts.UserHeader == "" {
		opts.UserHeader = "X-User-ID"
	}

	s := &Server{
		logger:                opts.Logger,
		sessions:              opts.Sessions,
		vault:                 opts.Vault,
		orders:                opts.Orders,
		queueClient:           opts.Queue,
		payments:              opts.Payments,
		downloadTTL:           opts.DownloadTTL,
		rateLimiter:           opts.RateLimiter,
		rateLimitUserIDHeader: opts.UserHeader,
		metrics:               newMetrics(),
		tracer:                otel.Tracer("passportpix/api"),
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.withRateLimit(handler)
	handler = s.withTracing(handler)
	handler = s.metrics.withHTTPMetrics(handler)
	handler = withCORS(handler)
	return handler
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())

	s.mux.HandleFunc("POST /v1/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /v1/sessions/{id}/photo", s.handleUploadPhoto)
	s.mux.HandleFunc("POST /v1/sessions/{id}/crop", s.handleApplyCrop)
	s.mux.HandleFunc("POST /v1/sessions/{id}/recrop", s.handleReCrop)
	s.mux.HandleFunc("POST /v1/sessions/{id}/accept", s.handleAccept)
	s.mux.HandleFunc("POST /v1/sessions/{id}/sdk-ready", s.handleSDKReady)
	s.mux.HandleFunc("POST /v1/sessions/{id}/payment", s.handlePayment)
	s.mux.HandleFunc("GET /v1/sessions/{id}/download", s.handleDownload)
	s.mux.HandleFunc("POST /v1/sessions/{id}/deliver", s.handleDeliver)
	s.mux.HandleFunc("POST /v1/sessions/{id}/reset", s.handleReset)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	session := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sessionView(session.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session.Snapshot()))
}

// handleUploadPhoto accepts either a multipart form with a "photo"
// field or the raw image as the request body.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := session.LoadSource(data); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "could not decode the uploaded image")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session.Snapshot()))
}

func (s *Server) handleApplyCrop(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req cropRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := session.ApplyCrop(r.Context(), domain.CropRegion{
		X:        req.X,
		Y:        req.Y,
		Width:    req.Width,
		Height:   req.Height,
		Rotation: req.Rotation,
	})
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(snap))
}

func (s *Server) handleReCrop(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.ReCrop(); err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session.Snapshot()))
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.Accept(); err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(session.Snapshot()))
}

func (s *Server) handleSDKReady(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	armed, err := session.MarkSDKReady()
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"armed": armed})
}

// handlePayment verifies the captured order. A verified payment also
// persists the deliverable to the vault and records the order so the
// delivery worker can re-verify it later.
func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := session.CompletePayment(r.Context(), req.OrderID)
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}

	if snap.Payment.Verified {
		snap = s.archiveDeliverable(r.Context(), session, snap)
	}
	writeJSON(w, http.StatusOK, sessionView(snap))
}

func (s *Server) archiveDeliverable(ctx context.Context, session *workflow.Session, snap workflow.Snapshot) workflow.Snapshot {
	if s.vault == nil {
		return snap
	}

	photo, err := session.Deliverable()
	if err != nil {
		s.logger.Printf("deliverable unavailable after payment session=%s err=%v", snap.ID, err)
		return snap
	}

	photoID, err := s.vault.StorePhoto(ctx, photo.Bytes)
	if err != nil {
		// The data-URI download path still works; only email delivery
		// needs the vault copy.
		s.logger.Printf("store photo failed session=%s err=%v", snap.ID, err)
		return snap
	}
	session.SetPhotoID(photoID)

	if s.orders != nil {
		now := time.Now().UTC()
		err := s.orders.Create(ctx, domain.Order{
			OrderID:   snap.Payment.OrderID,
			PhotoID:   photoID,
			Verified:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			s.logger.Printf("record order failed session=%s order=%s err=%v", snap.ID, snap.Payment.OrderID, err)
		}
	}
	return session.Snapshot()
}

// handleDownload re-verifies the payment with the provider before
// releasing anything, then returns both the data URI and, when the
// vault holds a copy, a time-limited presigned URL.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	photo, err := session.Deliverable()
	if err != nil {
		s.writeWorkflowError(w, err)
		return
	}

	snap := session.Snapshot()
	if s.payments != nil {
		state, err := s.payments.VerifyOrder(r.Context(), snap.Payment.OrderID)
		if err != nil {
			s.logger.Printf("payment re-verification failed session=%s err=%v", snap.ID, err)
			writeError(w, http.StatusBadGateway, "could not re-verify payment")
			return
		}
		if !state.Verified {
			writeError(w, http.StatusPaymentRequired, "payment is no longer verified")
			return
		}
	}

	resp := downloadResponse{
		PhotoID: snap.PhotoID,
		DataURI: photo.DataURI(),
	}
	if s.vault != nil && snap.PhotoID != "" {
		url, err := s.vault.PresignedDownloadURL(r.Context(), snap.PhotoID, s.downloadTTL)
		if err != nil {
			s.logger.Printf("presign download failed session=%s photo=%s err=%v", snap.ID, snap.PhotoID, err)
		} else {
			resp.DownloadURL = url
			resp.ExpiresAt = time.Now().Add(s.downloadTTL).UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req deliverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := domain.ValidateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := session.Snapshot()
	if snap.Step != domain.StepDownload || !snap.Payment.Verified {
		writeError(w, http.StatusConflict, "photo is not ready for delivery")
		return
	}
	if snap.PhotoID == "" {
		writeError(w, http.StatusConflict, "photo has not been archived yet")
		return
	}
	if s.queueClient == nil {
		writeError(w, http.StatusServiceUnavailable, "delivery queue is unavailable")
		return
	}

	if s.orders != nil {
		if _, err := s.orders.SetEmail(r.Context(), snap.Payment.OrderID, req.Email); err != nil {
			s.logger.Printf("record delivery email failed session=%s order=%s err=%v", snap.ID, snap.Payment.OrderID, err)
		}
	}

	info, err := s.queueClient.EnqueueDeliverPhoto(r.Context(), queue.DeliverPhotoPayload{
		Email:       req.Email,
		PhotoID:     snap.PhotoID,
		OrderID:     snap.Payment.OrderID,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Printf("enqueue delivery failed session=%s err=%v", snap.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue delivery")
		return
	}

	s.metrics.deliveriesEnqueued.WithLabelValues(info.Queue).Inc()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": info.ID,
		"queue":   info.Queue,
		"state":   info.State.String(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.StartOver()
	writeJSON(w, http.StatusOK, sessionView(session.Snapshot()))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*workflow.Session, bool) {
	session, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

func (s *Server) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrCheckInFlight), errors.Is(err, workflow.ErrCaptureInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrGuardNotSatisfied):
		writeError(w, http.StatusPreconditionFailed, "the photo has not passed validation")
	case errors.Is(err, workflow.ErrNotPaid):
		writeError(w, http.StatusPaymentRequired, "payment has not been verified")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

const maxUploadBytes = 32 << 20

func readUpload(r *http.Request) ([]byte, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("photo")
		if err != nil {
			return nil, errors.New(`multipart upload requires a "photo" field`)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxUploadBytes))
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("upload body is empty")
	}
	return data, nil
}

type cropRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

type paymentRequest struct {
	OrderID string `json:"order_id"`
}

type deliverRequest struct {
	Email string `json:"email"`
}

type downloadResponse struct {
	PhotoID     string `json:"photo_id,omitempty"`
	DataURI     string `json:"data_uri"`
	DownloadURL string `json:"download_url,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

type sessionResponse struct {
	ID         string                   `json:"session_id"`
	Step       string                   `json:"step"`
	Checking   bool                     `json:"checking"`
	SDKReady   bool                     `json:"sdk_ready"`
	Technical  *domain.TechnicalResult  `json:"technical,omitempty"`
	Compliance *domain.ComplianceResult `json:"compliance,omitempty"`
	Payment    domain.PaymentState      `json:"payment"`
	PhotoID    string                   `json:"photo_id,omitempty"`
	PreviewURI string                   `json:"preview_uri,omitempty"`
}

func sessionView(snap workflow.Snapshot) sessionResponse {
	return sessionResponse{
		ID:         snap.ID,
		Step:       snap.Step,
		Checking:   snap.Checking,
		SDKReady:   snap.SDKReady,
		Technical:  snap.Technical,
		Compliance: snap.Compliance,
		Payment:    snap.Payment,
		PhotoID:    snap.PhotoID,
		PreviewURI: snap.PreviewURI,
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	limited := io.LimitReader(r.Body, maxBodyBytes)
	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON body: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
