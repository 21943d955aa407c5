package marketplace

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/auth"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/service/quota"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// Service runs the request/offer board. Creating either one consumes a
// unit of the caller's monthly quota in the same transaction.
type Service struct {
	appCtx   *app.AppContext
	market   *repository.MarketplaceRepository
	profiles *repository.ProfileRepository
	quotas   *quota.Service
}

func NewService(appCtx *app.AppContext, quotas *quota.Service) *Service {
	return &Service{
		appCtx:   appCtx,
		market:   repository.NewMarketplaceRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
		quotas:   quotas,
	}
}

// RequestInput posts a new service request.
type RequestInput struct {
	CategoryID  uint64 `json:"categoryId" binding:"required"`
	Title       string `json:"title" binding:"required,min=3,max=160"`
	Description string `json:"description" binding:"max=5000"`
}

func (s *Service) CreateRequest(ctx context.Context, userID uint64, in RequestInput) (*db.ServiceRequest, error) {
	s.appCtx.Logger.Debug("CreateRequest called", "user", userID, "category", in.CategoryID)

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	ok, err := s.profiles.CategoryExists(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.InvalidArgument("category not found")
	}

	req := &db.ServiceRequest{
		CreatedByUserID: userID,
		CategoryID:      in.CategoryID,
		Title:           in.Title,
		Description:     in.Description,
		Status:          db.RequestOpen,
	}
	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.quotas.Reserve(ctx, tx, userID, quota.KindRequest); err != nil {
			return err
		}
		return s.market.WithTx(tx).CreateRequest(ctx, req)
	})
	if err != nil {
		if !errors.Is(err, svcErr.ErrQuotaExceeded) {
			s.appCtx.Logger.Error("CreateRequest failed", "user", userID, "err", err)
		}
		return nil, err
	}
	return req, nil
}

// RequestPage is one page of requests.
type RequestPage struct {
	Requests            []db.ServiceRequest `json:"requests"`
	NextPaginationToken *string             `json:"nextPaginationToken,omitempty"`
}

// ListRequests browses the board. status is "open" (default), "closed" or "all".
func (s *Service) ListRequests(ctx context.Context, status string, categoryID *uint64, token *string, limit int) (*RequestPage, error) {
	f := repository.RequestFilter{}
	switch status {
	case "", db.RequestOpen:
		f.Status = db.RequestOpen
	case db.RequestClosed:
		f.Status = db.RequestClosed
	case "all":
	default:
		return nil, svcErr.InvalidArgument("status must be open, closed or all")
	}
	if categoryID != nil {
		f.CategoryID = *categoryID
	}
	reqs, next, err := s.market.ListRequests(ctx, f, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &RequestPage{Requests: reqs, NextPaginationToken: next}, nil
}

func (s *Service) GetRequest(ctx context.Context, id uint64) (*db.ServiceRequest, error) {
	req, err := s.market.GetRequest(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("request not found")
	}
	return req, err
}

// CloseRequest lets the owner close an open request.
func (s *Service) CloseRequest(ctx context.Context, userID, id uint64) (*db.ServiceRequest, error) {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CreatedByUserID != userID {
		return nil, svcErr.Forbidden("only the request owner can close it")
	}
	ok, err := s.market.CloseRequest(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, svcErr.AlreadyProcessed("request is already closed")
	}
	return s.GetRequest(ctx, id)
}

// RequestSummary is one of the caller's requests with its offer tallies.
type RequestSummary struct {
	db.ServiceRequest
	OfferCount    int64 `json:"offerCount"`
	PendingOffers int64 `json:"pendingOffers"`
}

type SummaryPage struct {
	Requests            []RequestSummary `json:"requests"`
	NextPaginationToken *string          `json:"nextPaginationToken,omitempty"`
}

// MyRequests lists the caller's requests in any status with offer counts.
func (s *Service) MyRequests(ctx context.Context, userID uint64, token *string, limit int) (*SummaryPage, error) {
	reqs, next, err := s.market.ListRequests(ctx, repository.RequestFilter{OwnerID: userID}, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	counts, err := s.market.OfferCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RequestSummary, len(reqs))
	for i, r := range reqs {
		c := counts[r.ID]
		out[i] = RequestSummary{ServiceRequest: r, OfferCount: c.Total, PendingOffers: c.Pending}
	}
	return &SummaryPage{Requests: out, NextPaginationToken: next}, nil
}

// OfferInput is a provider's answer to a request. Price is optional.
type OfferInput struct {
	Price   *decimal.Decimal `json:"price"`
	Message string           `json:"message" binding:"required,max=2000"`
}

// CreateOffer answers requestID from the caller's profile.
//
// Behavior:
//   - The request must be open and owned by someone else.
//   - A profile offers at most once per request.
//   - Consumes one unit of the monthly offer quota.
func (s *Service) CreateOffer(ctx context.Context, userID, requestID uint64, in OfferInput) (*db.ServiceOffer, error) {
	s.appCtx.Logger.Debug("CreateOffer called", "user", userID, "request", requestID)

	in.Message = strings.TrimSpace(in.Message)
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}
	if in.Price != nil && in.Price.IsNegative() {
		return nil, svcErr.InvalidArgument("price cannot be negative")
	}

	p, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("create a profile before making offers")
	} else if err != nil {
		return nil, err
	}
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CreatedByUserID == userID {
		return nil, svcErr.InvalidArgument("you cannot make an offer on your own request")
	}
	if req.Status != db.RequestOpen {
		return nil, svcErr.Conflict("request is closed")
	}
	exists, err := s.market.OfferExists(ctx, requestID, p.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, svcErr.Conflict("you already made an offer on this request")
	}

	offer := &db.ServiceOffer{RequestID: requestID, ProfileID: p.ID, Message: in.Message, Status: db.OfferPending}
	if in.Price != nil {
		offer.Price = decimal.NewNullDecimal(*in.Price)
	}
	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.quotas.Reserve(ctx, tx, userID, quota.KindOffer); err != nil {
			return err
		}
		return s.market.WithTx(tx).CreateOffer(ctx, offer)
	})
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, svcErr.Conflict("you already made an offer on this request")
	case errors.Is(err, svcErr.ErrQuotaExceeded):
		return nil, err
	case err != nil:
		s.appCtx.Logger.Error("CreateOffer failed", "user", userID, "request", requestID, "err", err)
		return nil, err
	}
	return offer, nil
}

// ListOffers shows every offer on a request to its owner or an admin.
func (s *Service) ListOffers(ctx context.Context, caller auth.Principal, requestID uint64) ([]db.ServiceOffer, error) {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.CreatedByUserID != caller.UserID && !caller.IsAdmin {
		return nil, svcErr.Forbidden("only the request owner can see its offers")
	}
	return s.market.OffersForRequest(ctx, requestID)
}

type OfferPage struct {
	Offers              []db.ServiceOffer `json:"offers"`
	NextPaginationToken *string           `json:"nextPaginationToken,omitempty"`
}

// MyOffers lists offers made from the caller's profile, newest first.
func (s *Service) MyOffers(ctx context.Context, userID uint64, token *string, limit int) (*OfferPage, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &OfferPage{Offers: []db.ServiceOffer{}}, nil
	} else if err != nil {
		return nil, err
	}
	offers, next, err := s.market.OffersByProfile(ctx, p.ID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &OfferPage{Offers: offers, NextPaginationToken: next}, nil
}
