package social

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/repository"
)

// ContactInput saves a profile into the caller's address book.
type ContactInput struct {
	ProfileID  uint64  `json:"profileId" binding:"required"`
	CategoryID *uint64 `json:"categoryId"`
	Notes      string  `json:"notes" binding:"max=1024"`
}

// ContactPatch edits a saved contact. ClearCategory wins over CategoryID.
type ContactPatch struct {
	CategoryID    *uint64 `json:"categoryId"`
	ClearCategory bool    `json:"clearCategory"`
	Notes         *string `json:"notes" binding:"omitempty,max=1024"`
}

func (s *Service) checkCategory(ctx context.Context, userID uint64, categoryID *uint64) error {
	if categoryID == nil {
		return nil
	}
	ok, err := s.contacts.CategoryOwnedBy(ctx, *categoryID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.InvalidArgument("category not found")
	}
	return nil
}

// SaveContact stores profileID for userID. Each profile can be saved once.
func (s *Service) SaveContact(ctx context.Context, userID uint64, in ContactInput) (*db.Contact, error) {
	p, err := s.profiles.GetByID(ctx, in.ProfileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("profile not found")
	} else if err != nil {
		return nil, err
	}
	if p.UserID == userID {
		return nil, svcErr.InvalidArgument("you cannot save your own profile")
	}
	if err := s.checkCategory(ctx, userID, in.CategoryID); err != nil {
		return nil, err
	}

	exists, err := s.contacts.Exists(ctx, userID, in.ProfileID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, svcErr.Conflict("profile is already in your contacts")
	}

	c := &db.Contact{UserID: userID, ContactProfileID: in.ProfileID, CategoryID: in.CategoryID, Notes: strings.TrimSpace(in.Notes)}
	if err := s.contacts.Create(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("profile is already in your contacts")
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateContact(ctx context.Context, userID, contactID uint64, in ContactPatch) (*db.Contact, error) {
	fields := map[string]any{}
	switch {
	case in.ClearCategory:
		fields["category_id"] = nil
	case in.CategoryID != nil:
		if err := s.checkCategory(ctx, userID, in.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *in.CategoryID
	}
	if in.Notes != nil {
		fields["notes"] = strings.TrimSpace(*in.Notes)
	}
	if len(fields) > 0 {
		if err := s.contacts.Update(ctx, contactID, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.contacts.Get(ctx, contactID, userID)
}

func (s *Service) DeleteContact(ctx context.Context, userID, contactID uint64) error {
	return s.contacts.Delete(ctx, contactID, userID)
}

// Contacts lists the address book. categoryID narrows to one category;
// uncategorized selects contacts without one.
func (s *Service) Contacts(ctx context.Context, userID uint64, categoryID *uint64, uncategorized bool) ([]db.Contact, error) {
	return s.contacts.List(ctx, userID, repository.ContactFilter{CategoryID: categoryID, Uncategorized: uncategorized})
}

func (s *Service) CreateCategory(ctx context.Context, userID uint64, name string) (*db.ContactCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 {
		return nil, svcErr.InvalidArgument("category name must be 1-64 characters")
	}
	c := &db.ContactCategory{UserID: userID, Name: name}
	if err := s.contacts.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("a category with that name already exists")
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) Categories(ctx context.Context, userID uint64) ([]db.ContactCategory, error) {
	return s.contacts.ListCategories(ctx, userID)
}

// DeleteCategory removes the category and uncategorizes its contacts atomically.
func (s *Service) DeleteCategory(ctx context.Context, userID, categoryID uint64) error {
	return s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		return s.contacts.WithTx(tx).DeleteCategory(ctx, categoryID, userID)
	})
}
