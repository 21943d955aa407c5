package cards

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/metrics"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// Service sends profile cards between users, paying one credit per send.
type Service struct {
	appCtx   *app.AppContext
	cards    *repository.CardRepository
	credits  *repository.CreditRepository
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		cards:    repository.NewCardRepository(appCtx.DB),
		credits:  repository.NewCreditRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// Send shares profileID (the sender's own profile when nil) with receiverID.
//
// Behavior:
//   - Self-sends and unknown or disabled receivers are rejected.
//   - The profile must belong to the sender.
//   - One credit is deducted and the card inserted in the same transaction;
//     with no credit left nothing is written.
func (s *Service) Send(ctx context.Context, senderID, receiverID uint64, profileID *uint64) (*db.CardSend, error) {
	s.appCtx.Logger.Debug("Send called", "sender", senderID, "receiver", receiverID)

	if senderID == receiverID {
		return nil, svcErr.InvalidArgument("cannot send a card to yourself")
	}
	receiver, err := s.users.GetByID(ctx, receiverID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !receiver.IsActive) {
		return nil, svcErr.NotFound("receiver not found")
	} else if err != nil {
		return nil, err
	}

	profile, err := s.senderProfile(ctx, senderID, profileID)
	if err != nil {
		return nil, err
	}

	card := &db.CardSend{SenderID: senderID, ReceiverID: receiverID, ProfileID: profile.ID}
	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.credits.WithTx(tx).Deduct(ctx, senderID)
		if err != nil {
			return err
		}
		if !ok {
			return svcErr.InsufficientCredit("no card credits left, buy more credits to keep sending")
		}
		return s.cards.WithTx(tx).Create(ctx, card)
	})
	if err != nil {
		if !errors.Is(err, svcErr.ErrInsufficientCredit) {
			s.appCtx.Logger.Error("Send failed", "sender", senderID, "err", err)
		}
		return nil, err
	}

	metrics.CardSent()
	return card, nil
}

func (s *Service) senderProfile(ctx context.Context, senderID uint64, profileID *uint64) (*db.Profile, error) {
	if profileID == nil {
		p, err := s.profiles.GetByUserID(ctx, senderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.InvalidArgument("create your profile before sending cards")
		}
		return p, err
	}
	p, err := s.profiles.GetByID(ctx, *profileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("profile not found")
	} else if err != nil {
		return nil, err
	}
	if p.UserID != senderID {
		return nil, svcErr.Forbidden("you can only send your own profile")
	}
	return p, nil
}

// MarkViewed flips the card to viewed for its receiver. Repeated calls
// leave viewed_at untouched and return the card as stored.
func (s *Service) MarkViewed(ctx context.Context, cardID, callerID uint64) (*db.CardSend, error) {
	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.ReceiverID != callerID {
		return nil, svcErr.Forbidden("only the receiver can mark a card as viewed")
	}
	if card.Viewed {
		return card, nil
	}

	if _, err := s.cards.MarkViewed(ctx, cardID, callerID, s.appCtx.Now()); err != nil {
		return nil, err
	}
	return s.cards.Get(ctx, cardID)
}

// Page is one page of cards plus the token for the next one.
type Page struct {
	Cards               []db.CardSend `json:"cards"`
	NextPaginationToken *string       `json:"nextPaginationToken,omitempty"`
}

func (s *Service) Inbox(ctx context.Context, userID uint64, token *string, limit int) (*Page, error) {
	cards, next, err := s.cards.Received(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &Page{Cards: cards, NextPaginationToken: next}, nil
}

func (s *Service) Sent(ctx context.Context, userID uint64, token *string, limit int) (*Page, error) {
	cards, next, err := s.cards.Sent(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &Page{Cards: cards, NextPaginationToken: next}, nil
}

// Balance is the caller's remaining card credits and unread card count.
type Balance struct {
	Credits  int64 `json:"credits"`
	Unviewed int64 `json:"unviewed"`
}

func (s *Service) Balance(ctx context.Context, userID uint64) (*Balance, error) {
	credits, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	unviewed, err := s.cards.CountUnviewed(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Balance{Credits: credits, Unviewed: unviewed}, nil
}
