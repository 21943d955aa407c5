package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the identity row. Accounts are created by the register endpoint;
// everything else hangs off ID.
type User struct {
	ID           uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	Username     string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	FullName     string     `gorm:"size:128" json:"fullName"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         string     `gorm:"size:16;not null;default:user" json:"role"`
	IsVerified   bool       `gorm:"not null;default:false" json:"isVerified"`
	IsActive     bool       `gorm:"not null" json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Profile is the public page of a user. One per user, addressed by slug.
type Profile struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint64         `gorm:"uniqueIndex;not null" json:"userId"`
	Slug           string         `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	DisplayName    string         `gorm:"size:128" json:"displayName"`
	Bio            string         `gorm:"size:1024" json:"bio"`
	AvatarURL      string         `gorm:"size:512" json:"avatarUrl"`
	IsPublic       bool           `gorm:"not null;index" json:"isPublic"`
	ViewCount      int64          `gorm:"not null;default:0" json:"viewCount"`
	FollowerCount  int64          `gorm:"not null;default:0" json:"followerCount"`
	FollowingCount int64          `gorm:"not null;default:0" json:"followingCount"`
	ThemeConfig    datatypes.JSON `json:"themeConfig"`
	CategoryID     *uint64        `gorm:"index" json:"categoryId,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Category classifies both profiles and service requests.
type Category struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// SocialAccount is one external link on a profile. DisplayOrder defines
// rendering order; ClickCount only grows.
type SocialAccount struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID        uint64    `gorm:"index:idx_social_profile_order,priority:1;not null" json:"profileId"`
	Platform         string    `gorm:"size:32;not null" json:"platform"`
	PlatformURL      string    `gorm:"size:512;not null" json:"platformUrl"`
	PlatformUsername string    `gorm:"size:128" json:"platformUsername"`
	DisplayOrder     int       `gorm:"index:idx_social_profile_order,priority:2;not null;default:0" json:"displayOrder"`
	IsVisible        bool      `gorm:"not null" json:"isVisible"`
	ClickCount       int64     `gorm:"not null;default:0" json:"clickCount"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Follow is a directed user→user edge. The composite PK makes the pair unique.
type Follow struct {
	FollowerID  uint64    `gorm:"primaryKey" json:"followerId"`
	FollowingID uint64    `gorm:"primaryKey;index" json:"followingId"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

type ContactCategory struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"uniqueIndex:ux_contact_category_name,priority:1;not null" json:"userId"`
	Name      string    `gorm:"uniqueIndex:ux_contact_category_name,priority:2;size:64;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Contact is a saved profile in a user's address book. CategoryID, when
// set, always points at a category owned by UserID.
type Contact struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint64    `gorm:"uniqueIndex:ux_contact_user_profile,priority:1;not null" json:"userId"`
	ContactProfileID uint64    `gorm:"uniqueIndex:ux_contact_user_profile,priority:2;not null" json:"contactProfileId"`
	CategoryID       *uint64   `gorm:"index" json:"categoryId"`
	Notes            string    `gorm:"size:1024" json:"notes"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// CardCredit is the per-user card balance. Amount never goes below zero.
type CardCredit struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint64    `gorm:"uniqueIndex;not null" json:"userId"`
	Amount    int64     `gorm:"not null;default:0" json:"amount"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// CardSend records one profile card shared from sender to receiver.
// ViewedAt is set exactly when Viewed flips to true.
type CardSend struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   uint64     `gorm:"index;not null" json:"senderId"`
	ReceiverID uint64     `gorm:"index:idx_card_receiver_created,priority:1;not null" json:"receiverId"`
	ProfileID  uint64     `gorm:"not null" json:"profileId"`
	Viewed     bool       `gorm:"not null;default:false" json:"viewed"`
	ViewedAt   *time.Time `json:"viewedAt"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index:idx_card_receiver_created,priority:2" json:"createdAt"`
}

const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

// SubscriptionPlan carries quota numbers in its Features bag, see
// repository.PlanFeatures for the decoded shape.
type SubscriptionPlan struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string          `gorm:"size:64;not null" json:"name"`
	Description  string          `gorm:"size:512" json:"description"`
	PriceUSD     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"priceUsd"`
	PriceVND     decimal.Decimal `gorm:"type:decimal(14,0);not null" json:"priceVnd"`
	DurationDays int             `gorm:"not null" json:"durationDays"`
	Features     datatypes.JSON  `json:"features"`
	IsActive     bool            `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

type UserSubscription struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index:idx_sub_user_status,priority:1;not null" json:"userId"`
	PlanID    uint64    `gorm:"not null" json:"planId"`
	Status    string    `gorm:"index:idx_sub_user_status,priority:2;size:16;not null" json:"status"`
	StartsAt  time.Time `gorm:"not null" json:"startsAt"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expiresAt"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

const (
	TxTypeSubscription   = "subscription"
	TxTypeCreditPurchase = "credit_purchase"
	TxTypeCredits        = "credits"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
)

// PaymentTransaction moves pending → completed|failed exactly once, by an admin.
type PaymentTransaction struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64          `gorm:"index;not null" json:"userId"`
	Type          string          `gorm:"size:32;not null" json:"type"`
	AmountUSD     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amountUsd"`
	AmountVND     decimal.Decimal `gorm:"type:decimal(14,0);not null" json:"amountVnd"`
	Status        string          `gorm:"index;size:16;not null" json:"status"`
	ProofImageURL string          `gorm:"size:512" json:"proofImageUrl"`
	Metadata      datatypes.JSON  `json:"metadata"`
	Notes         string          `gorm:"size:1024" json:"notes,omitempty"`
	ProcessedBy   *uint64         `json:"processedBy,omitempty"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

const (
	RequestOpen   = "open"
	RequestClosed = "closed"

	OfferPending   = "pending"
	OfferAccepted  = "accepted"
	OfferRejected  = "rejected"
	OfferWithdrawn = "withdrawn"
)

type ServiceRequest struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedByUserID uint64    `gorm:"index:idx_request_owner_created,priority:1;not null" json:"createdByUserId"`
	CategoryID      uint64    `gorm:"index;not null" json:"categoryId"`
	Title           string    `gorm:"size:160;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Status          string    `gorm:"index;size:16;not null" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index:idx_request_owner_created,priority:2" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// ServiceOffer is one profile's bid on a request; (RequestID, ProfileID) is unique.
type ServiceOffer struct {
	ID        uint64              `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID uint64              `gorm:"uniqueIndex:ux_offer_request_profile,priority:1;not null" json:"requestId"`
	ProfileID uint64              `gorm:"uniqueIndex:ux_offer_request_profile,priority:2;index:idx_offer_profile_created,priority:1;not null" json:"profileId"`
	Price     decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"price"`
	Message   string              `gorm:"type:text" json:"message"`
	Status    string              `gorm:"size:16;not null" json:"status"`
	CreatedAt time.Time           `gorm:"autoCreateTime;index:idx_offer_profile_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`
}

const (
	EventView   = "view"
	EventClick  = "click"
	EventFollow = "follow"
	EventShare  = "share"
)

// AnalyticsEvent is an append-only row in the analytics log.
type AnalyticsEvent struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileID       uint64         `gorm:"index:idx_analytics_profile_created,priority:1;not null" json:"profileId"`
	EventType       string         `gorm:"size:16;not null" json:"eventType"`
	SocialAccountID *uint64        `json:"socialAccountId,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index:idx_analytics_profile_created,priority:2;index" json:"createdAt"`
}

func (AnalyticsEvent) TableName() string { return "analytics" }

// BankTransferInfo is the single row buyers see when paying by transfer.
type BankTransferInfo struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	BankName      string    `gorm:"size:128" json:"bankName"`
	AccountName   string    `gorm:"size:128" json:"accountName"`
	AccountNumber string    `gorm:"size:64" json:"accountNumber"`
	Branch        string    `gorm:"size:128" json:"branch"`
	TransferNote  string    `gorm:"size:256" json:"transferNote"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (BankTransferInfo) TableName() string { return "bank_transfer_info" }

type SearchHistory struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint64    `gorm:"index;not null" json:"userId"`
	Query      string    `gorm:"size:256" json:"query"`
	CategoryID *uint64   `json:"categoryId,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (SearchHistory) TableName() string { return "search_history" }

// UsageCounter is the per-user, per-month count of quota-gated rows.
// Period is "YYYY-MM" in the quota timezone.
type UsageCounter struct {
	UserID    uint64    `gorm:"primaryKey"`
	Kind      string    `gorm:"primaryKey;size:16"`
	Period    string    `gorm:"primaryKey;size:7"`
	Used      int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Profile{}, &Category{}, &SocialAccount{}, &Follow{},
		&ContactCategory{}, &Contact{}, &CardCredit{}, &CardSend{},
		&SubscriptionPlan{}, &UserSubscription{}, &PaymentTransaction{},
		&ServiceRequest{}, &ServiceOffer{}, &AnalyticsEvent{},
		&BankTransferInfo{}, &SearchHistory{}, &UsageCounter{},
	}
}
