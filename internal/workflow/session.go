package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/passportpix/passportpix/internal/config"
	"github.com/passportpix/passportpix/internal/domain"
	"github.com/passportpix/passportpix/internal/encode"
	"github.com/passportpix/passportpix/internal/render"
	"github.com/passportpix/passportpix/internal/validate"
)

var (
	ErrInvalidTransition = errors.New("invalid transition for current step")
	ErrCheckInFlight     = errors.New("compliance check already in flight")
	ErrCaptureInFlight   = errors.New("payment capture already in flight")
	ErrGuardNotSatisfied = errors.New("validation guard not satisfied")
	ErrNotPaid           = errors.New("payment has not been verified")
)

// ComplianceChecker is the AI collaborator judging the full-fidelity
// output against photo standards.
type ComplianceChecker interface {
	Check(ctx context.Context, photo encode.Encoded) (domain.ComplianceResult, error)
}

// PaymentVerifier verifies a provider-issued order after capture.
type PaymentVerifier interface {
	VerifyOrder(ctx context.Context, orderID string) (domain.PaymentState, error)
}

// Session is the aggregate for one user's pass through the wizard:
// current step, source image, crop parameters, rendered pair, verdicts
// and payment state. All mutation happens through its event methods.
//
// Async collaborator results are applied only if the session has not
// been reset since dispatch, tracked by an epoch counter captured at
// dispatch time and rechecked before every state-mutating continuation.
type Session struct {
	mu sync.Mutex

	logger     *log.Logger
	renderer   *render.Renderer
	rules      config.PhotoRules
	compliance ComplianceChecker
	payments   PaymentVerifier

	id    string
	step  string
	epoch uint64

	source  image.Image
	region  domain.CropRegion
	full    encode.Encoded
	preview encode.Encoded

	technical  *domain.TechnicalResult
	verdict    *domain.ComplianceResult
	payment    domain.PaymentState
	photoID    string
	sdkReady   bool
	checking   bool
	capturing  bool
}

// Snapshot is the read-only view handed to the HTTP layer.
type Snapshot struct {
	ID         string
	Step       string
	Technical  *domain.TechnicalResult
	Compliance *domain.ComplianceResult
	Payment    domain.PaymentState
	PhotoID    string
	Checking   bool
	SDKReady   bool
	PreviewURI string
}

func NewSession(id string, logger *log.Logger, rules config.PhotoRules, compliance ComplianceChecker, payments PaymentVerifier) *Session {
	r := render.New(rules.TargetWidth, rules.TargetHeight)
	return &Session{
		logger:     logger,
		renderer:   r,
		rules:      rules,
		compliance: compliance,
		payments:   payments,
		id:         id,
		step:       domain.StepUpload,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Step:      s.step,
		Technical: s.technical,
		Payment:   s.payment,
		PhotoID:   s.photoID,
		Checking:  s.checking,
		SDKReady:  s.sdkReady,
	}
	if s.verdict != nil {
		v := *s.verdict
		snap.Compliance = &v
	}
	if s.preview.Size() > 0 {
		snap.PreviewURI = s.preview.DataURI()
	}
	return snap
}

// LoadSource decodes an upload and enters Crop. Loading a new photo
// supersedes whatever session state existed before, from any step.
func (s *Session) LoadSource(data []byte) error {
	img, err := render.Decode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.source = img
	s.step = domain.StepCrop
	return nil
}

// ApplyCrop finalizes the crop region, runs the local render, encode
// and technical-validation pipeline synchronously, then dispatches the
// compliance request. The call returns once the verdict has been
// applied, or once it has been dropped because the session was reset
// while the request was in flight.
func (s *Session) ApplyCrop(ctx context.Context, region domain.CropRegion) (Snapshot, error) {
	s.mu.Lock()
	if s.step != domain.StepCrop {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: apply-crop from %s", ErrInvalidTransition, s.step)
	}
	if s.checking {
		s.mu.Unlock()
		return Snapshot{}, ErrCheckInFlight
	}

	bounds := s.source.Bounds()
	region = region.Normalized().Clamp(bounds.Dx(), bounds.Dy())
	if err := region.Validate(); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}

	full, preview, tech, err := s.runLocalPipeline(region)
	if err != nil {
		// Render/encode failures abort the transition; the session
		// stays in Crop for retry.
		s.mu.Unlock()
		return Snapshot{}, err
	}

	s.region = region
	s.full = full
	s.preview = preview
	s.technical = &tech
	s.verdict = nil
	s.step = domain.StepValidate
	s.checking = true
	epoch := s.epoch
	photo := s.full
	s.mu.Unlock()

	verdict := s.runComplianceCheck(ctx, photo)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// The user started over while the check was in flight; the
		// late result must not touch the fresh session.
		s.logger.Printf("dropping stale compliance verdict session=%s", s.id)
		return s.snapshotLocked(), nil
	}
	s.checking = false
	s.verdict = &verdict
	return s.snapshotLocked(), nil
}

func (s *Session) runLocalPipeline(region domain.CropRegion) (full, preview encode.Encoded, tech domain.TechnicalResult, err error) {
	fullRaster, err := s.renderer.Render(s.source, region)
	if err != nil {
		return encode.Encoded{}, encode.Encoded{}, domain.TechnicalResult{}, err
	}
	previewRaster, err := s.renderer.RenderPreview(s.source, region)
	if err != nil {
		return encode.Encoded{}, encode.Encoded{}, domain.TechnicalResult{}, err
	}

	full, err = encode.JPEG(fullRaster, encode.QualityFull)
	if err != nil {
		return encode.Encoded{}, encode.Encoded{}, domain.TechnicalResult{}, err
	}
	preview, err = encode.JPEG(previewRaster, encode.QualityPreview)
	if err != nil {
		return encode.Encoded{}, encode.Encoded{}, domain.TechnicalResult{}, err
	}

	tech = validate.Check(s.rules, full.Size(), full.Width, full.Height, full.Format)
	return full, preview, tech, nil
}

// runComplianceCheck never surfaces an error: collaborator failures
// become a degraded result so the Validate screen always has a verdict
// to render.
func (s *Session) runComplianceCheck(ctx context.Context, photo encode.Encoded) domain.ComplianceResult {
	if s.compliance == nil {
		return domain.DegradedComplianceResult("Compliance service is not configured.")
	}
	verdict, err := s.compliance.Check(ctx, photo)
	if err != nil {
		s.logger.Printf("compliance check failed session=%s err=%v", s.id, err)
		return domain.DegradedComplianceResult("Could not reach the compliance service. Please try again.")
	}
	return verdict
}

// ReCrop returns to Crop and discards both verdicts; no stale verdict
// survives into a new crop cycle.
func (s *Session) ReCrop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepValidate {
		return fmt.Errorf("%w: re-crop from %s", ErrInvalidTransition, s.step)
	}
	if s.checking {
		return ErrCheckInFlight
	}
	s.step = domain.StepCrop
	s.technical = nil
	s.verdict = nil
	return nil
}

// Accept moves Validate -> Payment, guarded on the size rule and the
// compliance verdict.
func (s *Session) Accept() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepValidate {
		return fmt.Errorf("%w: accept from %s", ErrInvalidTransition, s.step)
	}
	if s.checking {
		return ErrCheckInFlight
	}
	if s.technical == nil || s.verdict == nil {
		return ErrGuardNotSatisfied
	}
	if !s.technical.SizeValid || !s.verdict.Passed {
		return ErrGuardNotSatisfied
	}
	s.step = domain.StepPayment
	return nil
}

// MarkSDKReady records that the payment button may be rendered. It
// reports true at most once per entry into Payment; re-entering after
// a backward/forward cycle arms it again because leaving Payment
// clears the flag.
func (s *Session) MarkSDKReady() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepPayment {
		return false, fmt.Errorf("%w: sdk-ready from %s", ErrInvalidTransition, s.step)
	}
	if s.sdkReady {
		return false, nil
	}
	s.sdkReady = true
	return true, nil
}

// CompletePayment verifies a captured order. Verified orders move the
// session to Download; anything else keeps it in Payment with a
// visible error and no automatic retry.
func (s *Session) CompletePayment(ctx context.Context, orderID string) (Snapshot, error) {
	if err := domain.ValidateOrderID(orderID); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.step != domain.StepPayment {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: payment from %s", ErrInvalidTransition, s.step)
	}
	if s.capturing {
		s.mu.Unlock()
		return Snapshot{}, ErrCaptureInFlight
	}
	if s.payments == nil {
		s.mu.Unlock()
		return Snapshot{}, errors.New("payment verifier is not configured")
	}
	s.capturing = true
	epoch := s.epoch
	s.mu.Unlock()

	state, err := s.payments.VerifyOrder(ctx, orderID)
	if err != nil {
		state = domain.PaymentState{Verified: false, OrderID: orderID, Error: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Printf("dropping stale payment result session=%s order=%s", s.id, orderID)
		return s.snapshotLocked(), nil
	}
	s.capturing = false
	s.payment = state
	if state.Verified {
		s.step = domain.StepDownload
		s.sdkReady = false
	}
	return s.snapshotLocked(), nil
}

// Deliverable releases the full-fidelity output once payment has been
// verified.
func (s *Session) Deliverable() (encode.Encoded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != domain.StepDownload {
		return encode.Encoded{}, fmt.Errorf("%w: download from %s", ErrInvalidTransition, s.step)
	}
	if !s.payment.Verified {
		return encode.Encoded{}, ErrNotPaid
	}
	return s.full, nil
}

// SetPhotoID records the vault identifier issued when the deliverable
// was stored.
func (s *Session) SetPhotoID(photoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photoID = photoID
}

// StartOver discards the entire session state and returns to Upload.
// Bumping the epoch makes any in-flight collaborator result stale.
func (s *Session) StartOver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.epoch++
	s.step = domain.StepUpload
	s.source = nil
	s.region = domain.CropRegion{}
	s.full = encode.Encoded{}
	s.preview = encode.Encoded{}
	s.technical = nil
	s.verdict = nil
	s.payment = domain.PaymentState{}
	s.photoID = ""
	s.sdkReady = false
	s.checking = false
	s.capturing = false
}
