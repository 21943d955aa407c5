package marketplace

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
)

func (s *Service) loadOffer(ctx context.Context, offerID uint64) (*db.ServiceOffer, *db.ServiceRequest, error) {
	offer, err := s.market.GetOffer(ctx, offerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, svcErr.NotFound("offer not found")
	} else if err != nil {
		return nil, nil, err
	}
	req, err := s.GetRequest(ctx, offer.RequestID)
	if err != nil {
		return nil, nil, err
	}
	return offer, req, nil
}

var errNotPending = svcErr.AlreadyProcessed("offer is no longer pending")

// AcceptOffer marks the offer accepted and closes its request, together.
// Only the request owner may accept, and only while the request is open.
func (s *Service) AcceptOffer(ctx context.Context, userID, offerID uint64) (*db.ServiceOffer, error) {
	s.appCtx.Logger.Debug("AcceptOffer called", "user", userID, "offer", offerID)

	_, req, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if req.CreatedByUserID != userID {
		return nil, svcErr.Forbidden("only the request owner can accept offers")
	}

	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		market := s.market.WithTx(tx)
		ok, err := market.TransitionOffer(ctx, offerID, db.OfferPending, db.OfferAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return errNotPending
		}
		closed, err := market.CloseRequest(ctx, req.ID, userID)
		if err != nil {
			return err
		}
		if !closed {
			return svcErr.AlreadyProcessed("request is already closed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.market.GetOffer(ctx, offerID)
}

// RejectOffer lets the request owner turn down a pending offer.
func (s *Service) RejectOffer(ctx context.Context, userID, offerID uint64) (*db.ServiceOffer, error) {
	_, req, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if req.CreatedByUserID != userID {
		return nil, svcErr.Forbidden("only the request owner can reject offers")
	}
	return s.transition(ctx, offerID, db.OfferRejected)
}

// WithdrawOffer lets the offer's author pull back a pending offer.
func (s *Service) WithdrawOffer(ctx context.Context, userID, offerID uint64) (*db.ServiceOffer, error) {
	offer, _, err := s.loadOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetByID(ctx, offer.ProfileID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, svcErr.Forbidden("only the author can withdraw an offer")
	}
	return s.transition(ctx, offerID, db.OfferWithdrawn)
}

func (s *Service) transition(ctx context.Context, offerID uint64, to string) (*db.ServiceOffer, error) {
	ok, err := s.market.TransitionOffer(ctx, offerID, db.OfferPending, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotPending
	}
	return s.market.GetOffer(ctx, offerID)
}
