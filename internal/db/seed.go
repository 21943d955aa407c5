package db

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password"

var demoCategories = []Category{
	{Name: "Photography", Slug: "photography"},
	{Name: "Design", Slug: "design"},
	{Name: "Music", Slug: "music"},
	{Name: "Consulting", Slug: "consulting"},
	{Name: "Education", Slug: "education"},
}

var demoPlans = []SubscriptionPlan{
	{
		Name:         "Basic",
		Description:  "Post a few requests and answer more each month.",
		PriceUSD:     decimal.RequireFromString("4.00"),
		PriceVND:     decimal.NewFromInt(99000),
		DurationDays: 30,
		Features:     datatypes.JSON(`{"request_quota_per_month":5,"offer_quota_per_month":10,"highlights":["Verified badge"]}`),
		IsActive:     true,
	},
	{
		Name:         "Pro",
		Description:  "For studios working the marketplace every day.",
		PriceUSD:     decimal.RequireFromString("10.00"),
		PriceVND:     decimal.NewFromInt(249000),
		DurationDays: 30,
		Features:     datatypes.JSON(`{"request_quota_per_month":30,"offer_quota_per_month":50,"highlights":["Verified badge","Priority listing"]}`),
		IsActive:     true,
	},
}

// SeedDemoData wipes every table and loads a small demo world: categories,
// plans, bank details, one admin and eight creators who follow each other
// in a ring and hold a few card credits.
//
// All accounts use DemoPassword. Works on MySQL and SQLite.
func SeedDemoData(database *gorm.DB, logger *slog.Logger) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return database.Transaction(func(tx *gorm.DB) error {
		models := All()
		for i := len(models) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(models[i]).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", models[i], err)
			}
		}
		logger.Info("cleared existing data")

		categories := append([]Category(nil), demoCategories...)
		if err := tx.Create(&categories).Error; err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		plans := append([]SubscriptionPlan(nil), demoPlans...)
		if err := tx.Create(&plans).Error; err != nil {
			return fmt.Errorf("failed to seed plans: %w", err)
		}
		bank := BankTransferInfo{
			BankName:      "Vietcombank",
			AccountName:   "CARDLINK JSC",
			AccountNumber: "0071000123456",
			Branch:        "Ho Chi Minh City",
			TransferNote:  "CARDLINK <username>",
		}
		if err := tx.Create(&bank).Error; err != nil {
			return fmt.Errorf("failed to seed bank info: %w", err)
		}

		admin := User{Email: "admin@cardlink.local", Username: "admin", FullName: "Cardlink Admin",
			PasswordHash: string(hash), Role: RoleAdmin, IsVerified: true, IsActive: true}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}

		const creators = 8
		users := make([]User, creators)
		for i := range users {
			users[i] = User{
				Email:        fmt.Sprintf("user%d@example.com", i+1),
				Username:     fmt.Sprintf("user%d", i+1),
				FullName:     fmt.Sprintf("Demo Creator %d", i+1),
				PasswordHash: string(hash),
				Role:         RoleUser,
				IsVerified:   i%3 == 0,
				IsActive:     true,
			}
		}
		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		for i, u := range users {
			cat := categories[i%len(categories)].ID
			p := Profile{
				UserID:         u.ID,
				Slug:           u.Username,
				DisplayName:    u.FullName,
				Bio:            fmt.Sprintf("%s creator based in Saigon.", categories[i%len(categories)].Name),
				IsPublic:       i != creators-1,
				CategoryID:     &cat,
				FollowerCount:  1,
				FollowingCount: 1,
				ThemeConfig:    datatypes.JSON(`{"accent":"#1f6feb","layout":"classic"}`),
			}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to seed profile for %s: %w", u.Username, err)
			}
			accounts := []SocialAccount{
				{ProfileID: p.ID, Platform: "instagram", PlatformURL: "https://instagram.com/" + u.Username, PlatformUsername: u.Username, DisplayOrder: 0, IsVisible: true},
				{ProfileID: p.ID, Platform: "linkedin", PlatformURL: "https://linkedin.com/in/" + u.Username, PlatformUsername: u.Username, DisplayOrder: 1, IsVisible: i%2 == 0},
			}
			if err := tx.Create(&accounts).Error; err != nil {
				return fmt.Errorf("failed to seed social accounts: %w", err)
			}
			if err := tx.Create(&CardCredit{UserID: u.ID, Amount: 5}).Error; err != nil {
				return fmt.Errorf("failed to seed credits: %w", err)
			}
		}
		if err := tx.Create(&CardCredit{UserID: admin.ID}).Error; err != nil {
			return fmt.Errorf("failed to seed admin credits: %w", err)
		}

		// Ring: user i follows user i+1, so every profile has one of each.
		follows := make([]Follow, creators)
		for i := range users {
			follows[i] = Follow{FollowerID: users[i].ID, FollowingID: users[(i+1)%creators].ID}
		}
		if err := tx.Create(&follows).Error; err != nil {
			return fmt.Errorf("failed to seed follows: %w", err)
		}

		logger.Info("seeded demo data", "users", creators+1, "categories", len(categories), "plans", len(plans))
		return nil
	})
}
