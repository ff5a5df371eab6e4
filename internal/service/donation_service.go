package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chapelgive/donation-engine/internal/domain"
	"github.com/chapelgive/donation-engine/internal/observability"
	"github.com/chapelgive/donation-engine/internal/paystack"
	"github.com/chapelgive/donation-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// PaymentGateway is the provider surface the donation flow needs.
// *paystack.Client satisfies it.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
}

// MailNotifier enqueues the confirmation mail. Failures must stay non-fatal
// for the reconciliation path.
type MailNotifier interface {
	EnqueueDonationSuccess(ctx context.Context, mail DonationSuccessMail) error
}

type DonationService struct {
	donations   repository.DonationRepository
	donors      repository.DonorRepository
	refData     repository.ReferenceDataRepository
	txns        repository.TransactionRepository
	mailLogs    repository.MailLogRepository
	gateway     PaymentGateway
	mail        MailNotifier
	logger      *zap.Logger
	metrics     *observability.Metrics
	callbackURL string
	now         func() time.Time
}

type InitiateDonationInput struct {
	Name         string
	Email        string
	Phone        string
	Amount       float64
	CurrencyCode string
	CategorySlug string
}

type InitiateDonationResult struct {
	Donation         *domain.Donation
	AuthorizationURL string
	Reference        string
}

// VerificationData is the provider outcome fed into Reconcile, the same shape
// whether it arrived by webhook push or verify pull. Amount is in minor units.
type VerificationData struct {
	Provider        string
	ProviderRef     string
	ProviderTxnID   string
	Amount          int64
	Status          string
	GatewayResponse string
	Raw             json.RawMessage
}

type ListDonationsParams struct {
	Status       string
	DonorEmail   string
	CategorySlug string
	Page         int
	PerPage      int
}

type Pagination struct {
	Page    int
	PerPage int
	Total   int64
	Pages   int
}

func NewDonationService(
	donations repository.DonationRepository,
	donors repository.DonorRepository,
	refData repository.ReferenceDataRepository,
	txns repository.TransactionRepository,
	mailLogs repository.MailLogRepository,
	gateway PaymentGateway,
	mail MailNotifier,
	callbackURL string,
	logger *zap.Logger,
) (*DonationService, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DonationService{
		donations:   donations,
		donors:      donors,
		refData:     refData,
		txns:        txns,
		mailLogs:    mailLogs,
		gateway:     gateway,
		mail:        mail,
		logger:      logger,
		callbackURL: donationCallbackURL(callbackURL),
		now:         time.Now,
	}, nil
}

func (s *DonationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Initiate records a PENDING donation and asks the gateway for an
// authorization URL. The donation is persisted before the gateway call, so a
// gateway failure leaves a PENDING row behind for later reconciliation.
func (s *DonationService) Initiate(ctx context.Context, input InitiateDonationInput) (*InitiateDonationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateInitiateInput(&input); err != nil {
		return nil, err
	}

	currency, err := s.refData.GetCurrencyByCode(ctx, input.CurrencyCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unsupported currency %q", domain.ErrValidation, input.CurrencyCode)
		}
		return nil, fmt.Errorf("failed to resolve currency: %w", err)
	}

	var categoryID *int64
	if input.CategorySlug != "" {
		category, err := s.refData.GetCategoryBySlug(ctx, input.CategorySlug)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: invalid category %q", domain.ErrValidation, input.CategorySlug)
			}
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		categoryID = &category.ID
	}

	donor := &domain.Donor{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	}
	if err := s.donors.UpsertByEmail(ctx, donor); err != nil {
		return nil, fmt.Errorf("failed to upsert donor: %w", err)
	}

	reference, err := domain.NewReference(s.now().UTC())
	if err != nil {
		return nil, err
	}

	donation := &domain.Donation{
		UUID:       uuid.NewString(),
		DonorID:    donor.ID,
		CategoryID: categoryID,
		CurrencyID: currency.ID,
		Amount:     domain.ToMinorUnits(input.Amount),
		Reference:  reference,
		Status:     domain.StatusPending,
		Metadata:   json.RawMessage(`{"source":"api"}`),
	}
	if err := s.donations.Create(ctx, donation); err != nil {
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}

	initResp, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       donor.Email,
		Amount:      donation.Amount,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Metadata: map[string]any{
			"donationId": donation.ID,
			"donorId":    donor.ID,
		},
	})
	if err != nil {
		// The PENDING donation stays behind; a later verify can still settle it.
		s.logger.Warn("gateway initialize failed",
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}

	authURL := initResp.Data.AuthorizationURL
	if err := s.donations.SetAuthorizationURL(ctx, donation.ID, &authURL); err != nil {
		return nil, fmt.Errorf("failed to persist authorization url: %w", err)
	}
	donation.AuthorizationURL = &authURL
	donation.Donor = donor
	donation.Currency = currency

	s.metrics.IncDonationInitiated()
	s.logger.Info("donation initiated",
		zap.String("reference", reference),
		zap.Int64("amount", donation.Amount),
		zap.String("currency", currency.Code),
	)

	return &InitiateDonationResult{
		Donation:         donation,
		AuthorizationURL: authURL,
		Reference:        reference,
	}, nil
}

// Reconcile applies a provider outcome to a donation. It is the shared core
// of the webhook push and verify pull paths and is safe to call repeatedly
// for the same provider event: a seen (provider, providerRef) pair short-
// circuits, and the status update only fires while the donation is PENDING.
func (s *DonationService) Reconcile(ctx context.Context, reference string, data VerificationData) (domain.DonationStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", fmt.Errorf("%w: reference is required", domain.ErrValidation)
	}

	donation, err := s.donations.GetByReference(ctx, reference)
	if err != nil {
		return "", err
	}

	provider := data.Provider
	if provider == "" {
		provider = domain.ProviderPaystack
	}
	providerRef := data.ProviderRef
	if providerRef == "" {
		providerRef = reference
	}

	seen, err := s.txns.ExistsByProviderRef(ctx, provider, providerRef)
	if err != nil {
		return "", fmt.Errorf("failed to check provider reference: %w", err)
	}
	if seen {
		s.metrics.IncReconciliation("duplicate")
		s.logger.Info("provider event already reconciled",
			zap.String("reference", reference),
			zap.String("providerRef", providerRef),
		)
		return donation.Status, nil
	}

	newStatus := mapProviderStatus(data.Status)

	update := repository.ReconciliationUpdate{
		DonationID: donation.ID,
		Transaction: &domain.PaymentTransaction{
			DonationID:      donation.ID,
			Provider:        provider,
			ProviderRef:     providerRef,
			ProviderTxnID:   data.ProviderTxnID,
			Amount:          data.Amount,
			Status:          strings.ToLower(strings.TrimSpace(data.Status)),
			GatewayResponse: data.GatewayResponse,
			RawResponse:     data.Raw,
			CreatedAt:       s.now().UTC(),
		},
		NewStatus: newStatus,
	}

	changed, err := s.donations.ApplyReconciliation(ctx, update)
	if err != nil {
		return "", fmt.Errorf("failed to apply reconciliation: %w", err)
	}

	finalStatus := donation.Status
	if changed && newStatus != nil {
		finalStatus = *newStatus
	}

	switch {
	case changed && newStatus != nil:
		s.metrics.IncReconciliation(strings.ToLower(newStatus.String()))
	case newStatus == nil:
		s.metrics.IncReconciliation("unmapped")
	default:
		s.metrics.IncReconciliation("unchanged")
	}

	s.logger.Info("donation reconciled",
		zap.String("reference", reference),
		zap.String("providerStatus", data.Status),
		zap.String("status", finalStatus.String()),
		zap.Bool("statusChanged", changed),
	)

	if changed && newStatus != nil && *newStatus == domain.StatusSuccess {
		s.notifyDonationSuccess(ctx, donation)
	}

	return finalStatus, nil
}

// Verify pulls the outcome for a reference from the gateway and reconciles
// it. The raw verify payload is returned for the caller's response body.
func (s *DonationService) Verify(ctx context.Context, reference string) (*paystack.VerifyResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", domain.ErrValidation)
	}

	resp, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		// Provider rejected the verify; surface its message and touch nothing.
		return nil, &paystack.ProviderError{
			Message: providerRejectionMessage(resp.Message),
		}
	}

	providerRef := strings.TrimSpace(resp.Data.Reference)
	if providerRef == "" {
		providerRef = reference
	}

	_, err = s.Reconcile(ctx, reference, VerificationData{
		Provider:        domain.ProviderPaystack,
		ProviderRef:     providerRef,
		ProviderTxnID:   fmt.Sprintf("%d", resp.Data.ID),
		Amount:          resp.Data.Amount,
		Status:          resp.Data.Status,
		GatewayResponse: resp.Data.GatewayResponse,
		Raw:             resp.Raw,
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (s *DonationService) List(ctx context.Context, params ListDonationsParams) ([]domain.Donation, *Pagination, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	repoParams := repository.ListParams{
		DonorEmail: strings.TrimSpace(params.DonorEmail),
		Page:       params.Page,
		PerPage:    params.PerPage,
	}

	if trimmed := strings.TrimSpace(params.Status); trimmed != "" {
		status, err := domain.ParseDonationStatusFromString(trimmed)
		if err != nil {
			return nil, nil, err
		}
		repoParams.Status = &status
	}

	if categorySlug := strings.TrimSpace(params.CategorySlug); categorySlug != "" {
		categorySlug = slug.Make(categorySlug)
		category, err := s.refData.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil, fmt.Errorf("%w: invalid category filter %q", domain.ErrValidation, categorySlug)
			}
			return nil, nil, fmt.Errorf("failed to resolve category filter: %w", err)
		}
		repoParams.CategoryID = &category.ID
	}

	donations, total, err := s.donations.List(ctx, repoParams)
	if err != nil {
		return nil, nil, err
	}

	page := max(params.Page, 1)
	perPage := params.PerPage
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	pages := int((total + int64(perPage) - 1) / int64(perPage))

	return donations, &Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
	}, nil
}

func (s *DonationService) GetByUUID(ctx context.Context, id string) (*domain.Donation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: donation uuid is required", domain.ErrValidation)
	}
	return s.donations.GetByUUID(ctx, id)
}

func (s *DonationService) GetByReference(ctx context.Context, reference string) (*domain.Donation, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference is required", domain.ErrValidation)
	}
	return s.donations.GetByReference(ctx, reference)
}

// notifyDonationSuccess enqueues the confirmation mail exactly once per
// reference. Every failure here is logged and swallowed: the reconciliation
// already committed and must not be rolled back by notification trouble.
func (s *DonationService) notifyDonationSuccess(ctx context.Context, donation *domain.Donation) {
	if s.mail == nil || s.mailLogs == nil {
		return
	}

	sent, err := s.mailLogs.Exists(ctx, donation.Reference, domain.MailTypeDonationSuccess)
	if err != nil {
		s.logger.Warn("failed to check mail log",
			zap.String("reference", donation.Reference),
			zap.Error(err),
		)
		return
	}
	if sent {
		return
	}

	mail := DonationSuccessMail{
		Reference:   donation.Reference,
		AmountMinor: donation.Amount,
	}
	if donation.Donor != nil {
		mail.To = donation.Donor.Email
		mail.DonorName = donation.Donor.Name
	}
	if donation.Currency != nil {
		mail.CurrencyCode = donation.Currency.Code
	}

	if err := s.mail.EnqueueDonationSuccess(ctx, mail); err != nil {
		s.logger.Warn("failed to enqueue confirmation mail",
			zap.String("reference", donation.Reference),
			zap.Error(err),
		)
		return
	}

	mailLog := &domain.MailLog{
		Reference: donation.Reference,
		Type:      domain.MailTypeDonationSuccess,
		CreatedAt: s.now().UTC(),
	}
	if err := s.mailLogs.Create(ctx, mailLog); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Concurrent reconcile won the race; the mail is on its way.
			return
		}
		s.logger.Warn("failed to record mail log",
			zap.String("reference", donation.Reference),
			zap.Error(err),
		)
	}
}

const donationCallbackPath = "/donate/callback"

// donationCallbackURL appends the checkout return path to the configured
// origin.
func donationCallbackURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return base + donationCallbackPath
}

func providerRejectionMessage(msg string) string {
	if trimmed := strings.TrimSpace(msg); trimmed != "" {
		return trimmed
	}
	return "transaction verification rejected"
}

// mapProviderStatus translates the provider charge status into a donation
// transition. Unknown statuses leave the donation untouched.
func mapProviderStatus(providerStatus string) *domain.DonationStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "success":
		status := domain.StatusSuccess
		return &status
	case "failed", "abandoned":
		status := domain.StatusFailed
		return &status
	}
	return nil
}

func validateInitiateInput(input *InitiateDonationInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	input.CurrencyCode = strings.ToUpper(strings.TrimSpace(input.CurrencyCode))

	// Category may arrive as a display name; slugify it the same way the
	// seeded reference data is slugified.
	if trimmed := strings.TrimSpace(input.CategorySlug); trimmed != "" {
		input.CategorySlug = slug.Make(trimmed)
	} else {
		input.CategorySlug = ""
	}

	if input.Email == "" {
		return fmt.Errorf("%w: donor email is required", domain.ErrValidation)
	}
	if !strings.Contains(input.Email, "@") {
		return fmt.Errorf("%w: donor email %q is not valid", domain.ErrValidation, input.Email)
	}
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be greater than zero", domain.ErrValidation)
	}
	if input.CurrencyCode == "" {
		return fmt.Errorf("%w: currency code is required", domain.ErrValidation)
	}
	return nil
}
