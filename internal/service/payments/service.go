package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oggyb/cardlink/internal/app"
	"github.com/oggyb/cardlink/internal/db"
	svcErr "github.com/oggyb/cardlink/internal/errors"
	"github.com/oggyb/cardlink/internal/metrics"
	"github.com/oggyb/cardlink/internal/repository"
	"github.com/oggyb/cardlink/internal/storage"
	"github.com/oggyb/cardlink/internal/utils/pagination"
)

// Service runs the bank-transfer payment pipeline: buyers file pending
// transactions with a proof, admins approve or reject each one exactly once.
type Service struct {
	appCtx   *app.AppContext
	payments *repository.PaymentRepository
	subs     *repository.SubscriptionRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		payments: repository.NewPaymentRepository(appCtx.DB),
		subs:     repository.NewSubscriptionRepository(appCtx.DB),
	}
}

// CreditPurchase is the buyer's claim for a credit package.
type CreditPurchase struct {
	PackageID string          `json:"packageId" binding:"required"`
	Credits   int64           `json:"credits" binding:"required,gt=0"`
	AmountVND decimal.Decimal `json:"amountVnd"`
	ProofURL  string          `json:"proofUrl" binding:"required,url"`
}

// InitiateCreditPurchase files a pending credit_purchase. The package,
// credit count and amount must match the catalog.
func (s *Service) InitiateCreditPurchase(ctx context.Context, userID uint64, in CreditPurchase) (*db.PaymentTransaction, error) {
	s.appCtx.Logger.Debug("InitiateCreditPurchase called", "user", userID, "package", in.PackageID)

	pkg, ok := findPackage(in.PackageID)
	if !ok {
		return nil, svcErr.InvalidArgument(fmt.Sprintf("unknown credit package %q", in.PackageID))
	}
	if in.Credits != pkg.Credits || !in.AmountVND.Equal(pkg.PriceVND) {
		return nil, svcErr.InvalidArgument("credits or amount do not match the selected package")
	}

	meta, err := repository.EncodeMetadata(repository.PaymentMetadata{PackageID: pkg.ID, Credits: pkg.Credits, Currency: "VND"})
	if err != nil {
		return nil, err
	}
	t := &db.PaymentTransaction{
		UserID:        userID,
		Type:          db.TxTypeCreditPurchase,
		AmountUSD:     pkg.PriceUSD,
		AmountVND:     pkg.PriceVND,
		Status:        db.TxStatusPending,
		ProofImageURL: in.ProofURL,
		Metadata:      meta,
	}
	if err := s.payments.Create(ctx, t); err != nil {
		s.appCtx.Logger.Error("create credit purchase failed", "user", userID, "err", err)
		return nil, err
	}
	return t, nil
}

// SubscriptionPurchase is the buyer's claim for a plan.
type SubscriptionPurchase struct {
	PlanID   uint64 `json:"planId" binding:"required"`
	ProofURL string `json:"proofUrl" binding:"required,url"`
	Currency string `json:"currency" binding:"omitempty,oneof=USD VND"`
}

// PurchaseSubscription files a pending subscription transaction priced
// from the plan.
func (s *Service) PurchaseSubscription(ctx context.Context, userID uint64, in SubscriptionPurchase) (*db.PaymentTransaction, error) {
	s.appCtx.Logger.Debug("PurchaseSubscription called", "user", userID, "plan", in.PlanID)

	plan, err := s.subs.GetPlan(ctx, in.PlanID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !plan.IsActive) {
		return nil, svcErr.NotFound("plan not found")
	} else if err != nil {
		return nil, err
	}

	currency := in.Currency
	if currency == "" {
		currency = "VND"
	}
	meta, err := repository.EncodeMetadata(repository.PaymentMetadata{PlanID: plan.ID, Currency: currency})
	if err != nil {
		return nil, err
	}
	t := &db.PaymentTransaction{
		UserID:        userID,
		Type:          db.TxTypeSubscription,
		AmountUSD:     plan.PriceUSD,
		AmountVND:     plan.PriceVND,
		Status:        db.TxStatusPending,
		ProofImageURL: in.ProofURL,
		Metadata:      meta,
	}
	if err := s.payments.Create(ctx, t); err != nil {
		s.appCtx.Logger.Error("create subscription purchase failed", "user", userID, "err", err)
		return nil, err
	}
	return t, nil
}

// Approve settles a pending transaction as completed and applies its side
// effects in the same database transaction:
//   - subscription: one active UserSubscription expiring duration_days after
//     approval, and the buyer becomes verified.
//   - credits / credit_purchase: metadata.credits are granted.
//
// A transaction that is no longer pending yields ErrAlreadyProcessed and
// nothing else happens.
func (s *Service) Approve(ctx context.Context, txID, adminID uint64) (*db.PaymentTransaction, error) {
	s.appCtx.Logger.Debug("Approve called", "tx", txID, "admin", adminID)

	var txType string
	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		payments := s.payments.WithTx(tx)
		t, err := payments.Get(ctx, txID)
		if err != nil {
			return err
		}
		txType = t.Type

		now := s.appCtx.Now()
		ok, err := payments.Complete(ctx, txID, adminID, now)
		if err != nil {
			return err
		}
		if !ok {
			return svcErr.AlreadyProcessed("transaction was already processed")
		}
		return s.fulfill(ctx, tx, t, now)
	})
	if err != nil {
		if !errors.Is(err, svcErr.ErrAlreadyProcessed) {
			s.appCtx.Logger.Error("Approve failed", "tx", txID, "err", err)
		}
		return nil, err
	}

	metrics.PaymentProcessed(txType, "approved")
	s.appCtx.Logger.Info("payment approved", "tx", txID, "type", txType, "admin", adminID)
	return s.payments.Get(ctx, txID)
}

func (s *Service) fulfill(ctx context.Context, tx *gorm.DB, t *db.PaymentTransaction, now time.Time) error {
	meta, err := repository.DecodeMetadata(t.Metadata)
	if err != nil {
		return svcErr.InvalidArgument(err.Error())
	}

	switch t.Type {
	case db.TxTypeSubscription:
		subs := s.subs.WithTx(tx)
		plan, err := subs.GetPlan(ctx, meta.PlanID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.InvalidArgument(fmt.Sprintf("transaction references unknown plan %d", meta.PlanID))
		} else if err != nil {
			return err
		}
		err = subs.Create(ctx, &db.UserSubscription{
			UserID:    t.UserID,
			PlanID:    plan.ID,
			Status:    db.SubscriptionActive,
			StartsAt:  now,
			ExpiresAt: now.AddDate(0, 0, plan.DurationDays),
		})
		if err != nil {
			return err
		}
		return repository.NewUserRepository(tx).SetVerified(ctx, t.UserID)

	case db.TxTypeCredits, db.TxTypeCreditPurchase:
		if meta.Credits <= 0 {
			return svcErr.InvalidArgument("transaction carries no credits to grant")
		}
		return repository.NewCreditRepository(tx).Grant(ctx, t.UserID, meta.Credits)
	}
	return svcErr.InvalidArgument(fmt.Sprintf("unknown transaction type %q", t.Type))
}

// Reject settles a pending transaction as failed with a mandatory reason.
// No subscription, verification or credit is applied.
func (s *Service) Reject(ctx context.Context, txID, adminID uint64, reason string) (*db.PaymentTransaction, error) {
	s.appCtx.Logger.Debug("Reject called", "tx", txID, "admin", adminID)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, svcErr.InvalidArgument("a rejection reason is required")
	}

	t, err := s.payments.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	ok, err := s.payments.Fail(ctx, txID, adminID, reason, s.appCtx.Now())
	if err != nil {
		s.appCtx.Logger.Error("Reject failed", "tx", txID, "err", err)
		return nil, err
	}
	if !ok {
		return nil, svcErr.AlreadyProcessed("transaction was already processed")
	}

	metrics.PaymentProcessed(t.Type, "rejected")
	s.appCtx.Logger.Info("payment rejected", "tx", txID, "admin", adminID, "reason", reason)
	return s.payments.Get(ctx, txID)
}

// Page is one page of transactions.
type Page struct {
	Transactions        []db.PaymentTransaction `json:"transactions"`
	NextPaginationToken *string                 `json:"nextPaginationToken,omitempty"`
}

// List is the admin view, optionally narrowed by status.
func (s *Service) List(ctx context.Context, status string, token *string, limit int) (*Page, error) {
	switch status {
	case "", db.TxStatusPending, db.TxStatusCompleted, db.TxStatusFailed:
	default:
		return nil, svcErr.InvalidArgument(fmt.Sprintf("unknown status %q", status))
	}
	return s.list(ctx, repository.PaymentFilter{Status: status}, token, limit)
}

// Mine lists the caller's own transactions.
func (s *Service) Mine(ctx context.Context, userID uint64, token *string, limit int) (*Page, error) {
	return s.list(ctx, repository.PaymentFilter{UserID: userID}, token, limit)
}

func (s *Service) list(ctx context.Context, f repository.PaymentFilter, token *string, limit int) (*Page, error) {
	items, next, err := s.payments.List(ctx, f, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return &Page{Transactions: items, NextPaginationToken: next}, nil
}

func (s *Service) BankInfo(ctx context.Context) (*db.BankTransferInfo, error) {
	return s.payments.BankInfo(ctx)
}

// BankInfoInput is the admin's edit of the transfer instructions.
type BankInfoInput struct {
	BankName      string `json:"bankName" binding:"required,max=128"`
	AccountName   string `json:"accountName" binding:"required,max=128"`
	AccountNumber string `json:"accountNumber" binding:"required,max=64"`
	Branch        string `json:"branch" binding:"max=128"`
	TransferNote  string `json:"transferNote" binding:"max=256"`
}

func (s *Service) SaveBankInfo(ctx context.Context, in BankInfoInput) (*db.BankTransferInfo, error) {
	info := &db.BankTransferInfo{
		BankName:      in.BankName,
		AccountName:   in.AccountName,
		AccountNumber: in.AccountNumber,
		Branch:        in.Branch,
		TransferNote:  in.TransferNote,
	}
	if err := s.payments.SaveBankInfo(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// PresignProof hands out an upload URL for a transfer receipt.
func (s *Service) PresignProof(ctx context.Context, userID uint64, contentType string) (*storage.Upload, error) {
	if s.appCtx.Proofs == nil {
		return nil, svcErr.Unavailable("proof uploads are not configured")
	}
	if !storage.Supported(contentType) {
		return nil, svcErr.InvalidArgument("proof must be a PNG, JPEG, WebP image or a PDF")
	}
	return s.appCtx.Proofs.PresignProof(ctx, userID, contentType)
}
