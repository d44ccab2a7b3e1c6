package worker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/passportpix/passportpix/internal/config"
	"github.com/passportpix/passportpix/internal/domain"
	"github.com/passportpix/passportpix/internal/email"
	"github.com/passportpix/passportpix/internal/queue"
	"github.com/passportpix/passportpix/internal/store"
)

// Server consumes delivery tasks: it re-verifies payment server-side,
// issues a time-limited download link for the stored photo and hands
// the notice to the email collaborator.
type Server struct {
	logger      *log.Logger
	server      *asynq.Server
	vault       photoVault
	payments    paymentVerifier
	orders      store.OrderStore
	notices     noticeSender
	downloadTTL time.Duration
	metrics     *metrics
	tracer      trace.Tracer
}

type noticeSender interface {
	Send(ctx context.Context, notice email.DownloadNotice) error
}

type photoVault interface {
	PhotoExists(ctx context.Context, photoID string) (bool, error)
	PresignedDownloadURL(ctx context.Context, photoID string, expiry time.Duration) (string, error)
}

type paymentVerifier interface {
	VerifyOrder(ctx context.Context, orderID string) (domain.PaymentState, error)
}

func NewServer(
	logger *log.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	vault photoVault,
	payments paymentVerifier,
	orders store.OrderStore,
	notices noticeSender,
	downloadTTL time.Duration,
) (*Server, error) {
	if vault == nil {
		return nil, fmt.Errorf("photo vault is required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment verifier is required")
	}
	if notices == nil {
		return nil, fmt.Errorf("notice sender is required")
	}
	if downloadTTL <= 0 {
		downloadTTL = 15 * time.Minute
	}

	s := &Server{
		logger: logger,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Printf("task failed type=%s retry=%d/%d err=%v", task.Type(), retried, maxRetry, err)
				}),
			},
		),
		vault:       vault,
		payments:    payments,
		orders:      orders,
		notices:     notices,
		downloadTTL: downloadTTL,
		metrics:     newMetrics(),
		tracer:      otel.Tracer("passportpix/worker"),
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeDeliverPhoto, s.handleDeliverPhoto)
	return s.server.Run(mux)
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleDeliverPhoto(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := "failed"

	payload, err := queue.ParseDeliverPhotoPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.deliver_photo", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("delivery.order_id", payload.OrderID),
		attribute.String("delivery.photo_id", payload.PhotoID),
	)
	defer span.End()
	defer func() {
		s.metrics.deliveryDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.deliveriesTotal.WithLabelValues(outcome).Inc()
	}()

	s.metrics.activeDeliveries.Inc()
	defer s.metrics.activeDeliveries.Dec()

	s.logger.Printf("Delivering... order_id=%s photo_id=%s", payload.OrderID, payload.PhotoID)

	if err := s.checkOrder(ctx, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order check failed")
		// Payment problems won't heal on retry; let the task die.
		return fmt.Errorf("order check: %v: %w", err, asynq.SkipRetry)
	}

	url, err := s.presignDownload(ctx, payload.PhotoID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "presign failed")
		return fmt.Errorf("presign download: %w", err)
	}

	notice := email.DownloadNotice{
		Email:       payload.Email,
		PhotoID:     payload.PhotoID,
		OrderID:     payload.OrderID,
		DownloadURL: url,
		ExpiresAt:   time.Now().Add(s.downloadTTL).UTC(),
	}
	if err := s.notices.Send(ctx, notice); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "notice dispatch failed")
		return fmt.Errorf("send download notice: %w", err)
	}

	s.logger.Printf("Delivered order_id=%s photo_id=%s", payload.OrderID, payload.PhotoID)
	outcome = "succeeded"
	span.SetStatus(codes.Ok, "delivered")
	return nil
}

// checkOrder re-verifies the payment server-side before anything is
// released: the stored order must match the requested photo and the
// provider must still report it captured.
func (s *Server) checkOrder(ctx context.Context, payload queue.DeliverPhotoPayload) error {
	if s.orders != nil {
		order, ok, err := s.orders.Get(ctx, payload.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if !ok {
			return fmt.Errorf("unknown order %s", payload.OrderID)
		}
		if order.PhotoID != payload.PhotoID {
			return fmt.Errorf("order %s does not cover photo %s", payload.OrderID, payload.PhotoID)
		}
	}

	state, err := s.payments.VerifyOrder(ctx, payload.OrderID)
	if err != nil {
		s.metrics.verificationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("re-verify payment: %w", err)
	}
	if !state.Verified {
		s.metrics.verificationsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("payment not verified for order %s: %s", payload.OrderID, state.Error)
	}
	s.metrics.verificationsTotal.WithLabelValues("verified").Inc()
	return nil
}

func (s *Server) presignDownload(ctx context.Context, photoID string) (string, error) {
	exists, err := s.vault.PhotoExists(ctx, photoID)
	if err != nil {
		return "", fmt.Errorf("check photo: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("photo %s is missing from the vault", photoID)
	}
	return s.vault.PresignedDownloadURL(ctx, photoID, s.downloadTTL)
}
