package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chapelgive/donation-engine/internal/domain"
	"github.com/chapelgive/donation-engine/internal/paystack"
	"github.com/chapelgive/donation-engine/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
	maxPerPage     = 100
)

type DonationService interface {
	Initiate(ctx context.Context, input service.InitiateDonationInput) (*service.InitiateDonationResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
	Reconcile(ctx context.Context, reference string, data service.VerificationData) (domain.DonationStatus, error)
	List(ctx context.Context, params service.ListDonationsParams) ([]domain.Donation, *service.Pagination, error)
	GetByUUID(ctx context.Context, id string) (*domain.Donation, error)
	GetByReference(ctx context.Context, reference string) (*domain.Donation, error)
}

type DonationHandler struct {
	service DonationService
}

func NewDonationHandler(service DonationService) (*DonationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("donation service is required")
	}
	return &DonationHandler{service: service}, nil
}

func RegisterDonationRoutes(router fiber.Router, service DonationService) error {
	h, err := NewDonationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/donations/initiate", h.InitiateDonation)
	v1.Post("/donations/verify/:reference", h.VerifyDonation)
	v1.Get("/donations", h.ListDonations)
	v1.Get("/donations/by-reference/:reference", h.GetDonationByReference)
	v1.Get("/donations/:uuid", h.GetDonation)

	return nil
}

type initiateDonationRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Category string  `json:"category"`
}

type initiateDonationResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	Status           string `json:"status"`
	UUID             string `json:"uuid"`
}

type donorResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type categoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type currencyResponse struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

type transactionResponse struct {
	Provider        string    `json:"provider"`
	ProviderRef     string    `json:"providerRef"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	GatewayResponse string    `json:"gatewayResponse,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type donationResponse struct {
	UUID             string                `json:"uuid"`
	Reference        string                `json:"reference"`
	Amount           int64                 `json:"amount"`
	Status           string                `json:"status"`
	AuthorizationURL *string               `json:"authorizationUrl,omitempty"`
	Donor            *donorResponse        `json:"donor,omitempty"`
	Category         *categoryResponse     `json:"category,omitempty"`
	Currency         *currencyResponse     `json:"currency,omitempty"`
	Transactions     []transactionResponse `json:"transactions,omitempty"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

type listDonationsResponse struct {
	Data []donationResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type listMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
}

func (h *DonationHandler) InitiateDonation(c *fiber.Ctx) error {
	var req initiateDonationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Initiate(c.Context(), service.InitiateDonationInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Amount:       req.Amount,
		CurrencyCode: req.Currency,
		CategorySlug: req.Category,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(initiateDonationResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
		Status:           result.Donation.Status.String(),
		UUID:             result.Donation.UUID,
	})
}

func (h *DonationHandler) VerifyDonation(c *fiber.Ctx) error {
	reference := strings.TrimSpace(c.Params("reference"))

	resp, err := h.service.Verify(c.Context(), reference)
	if err != nil {
		return toHTTPError(err)
	}

	donation, err := h.service.GetByReference(c.Context(), reference)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"reference":       reference,
		"status":          donation.Status.String(),
		"providerStatus":  resp.Data.Status,
		"gatewayResponse": resp.Data.GatewayResponse,
		"amount":          resp.Data.Amount,
	})
}

func (h *DonationHandler) ListDonations(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	donations, meta, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listDonationsResponse{
		Data: toDonationResponses(donations),
		Meta: listMeta{
			Page:    meta.Page,
			PerPage: meta.PerPage,
			Total:   meta.Total,
			Pages:   meta.Pages,
		},
	})
}

func (h *DonationHandler) GetDonation(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("uuid"))
	donation, err := h.service.GetByUUID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDonationResponse(donation))
}

func (h *DonationHandler) GetDonationByReference(c *fiber.Ctx) error {
	reference := strings.TrimSpace(c.Params("reference"))
	donation, err := h.service.GetByReference(c.Context(), reference)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDonationResponse(donation))
}

func parseListParams(c *fiber.Ctx) (service.ListDonationsParams, error) {
	params := service.ListDonationsParams{
		Status:       c.Query("status"),
		DonorEmail:   c.Query("donorEmail"),
		CategorySlug: c.Query("category"),
		Page:         c.QueryInt("page", defaultPage),
		PerPage:      c.QueryInt("perPage", defaultPerPage),
	}

	if params.Page < 1 {
		return service.ListDonationsParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PerPage < 1 || params.PerPage > maxPerPage {
		return service.ListDonationsParams{}, fmt.Errorf("%w: perPage must be between 1 and %d", domain.ErrValidation, maxPerPage)
	}

	return params, nil
}

func toDonationResponses(donations []domain.Donation) []donationResponse {
	responses := make([]donationResponse, 0, len(donations))
	for i := range donations {
		responses = append(responses, toDonationResponse(&donations[i]))
	}
	return responses
}

func toDonationResponse(d *domain.Donation) donationResponse {
	if d == nil {
		return donationResponse{}
	}

	resp := donationResponse{
		UUID:             d.UUID,
		Reference:        d.Reference,
		Amount:           d.Amount,
		Status:           d.Status.String(),
		AuthorizationURL: d.AuthorizationURL,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}

	if d.Donor != nil {
		resp.Donor = &donorResponse{
			Name:  d.Donor.Name,
			Email: d.Donor.Email,
			Phone: d.Donor.Phone,
		}
	}
	if d.Category != nil {
		resp.Category = &categoryResponse{Name: d.Category.Name, Slug: d.Category.Slug}
	}
	if d.Currency != nil {
		resp.Currency = &currencyResponse{
			Code:   d.Currency.Code,
			Symbol: d.Currency.Symbol,
			Name:   d.Currency.Name,
		}
	}
	for _, txn := range d.Transactions {
		resp.Transactions = append(resp.Transactions, transactionResponse{
			Provider:        txn.Provider,
			ProviderRef:     txn.ProviderRef,
			Amount:          txn.Amount,
			Status:          txn.Status,
			GatewayResponse: txn.GatewayResponse,
			CreatedAt:       txn.CreatedAt,
		})
	}

	return resp
}

func toHTTPError(err error) error {
	var provErr *paystack.ProviderError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.As(err, &provErr):
		return fiber.NewError(fiber.StatusBadGateway, provErr.Message)
	case errors.Is(err, domain.ErrProvider):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
