package api

import (
	"context"
	"errors"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoData creates a demo account with a couple of interventions so a
// fresh local setup has something to look at. Only runs when seeding is
// enabled and the environment is local.
func (s *Server) SeedDemoData(ctx context.Context) error {
	if !s.cfg.App.SeedDemo || s.cfg.App.Env != "local" {
		return nil
	}

	const demoEmail = "demo@helpdesk.local"
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("demo-pass"), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			FullName: "Demo Employee",
			Email:    demoEmail,
			Password: string(hash),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Intervention{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	demos := []model.Intervention{
		{
			Title:         "Replace toner in front-desk printer",
			CompanyName:   "Acme Logistics",
			CompanyNumber: "ACM-0042",
			Content:       "Magenta cartridge empty, spare in storage room B.",
			Tags:          []string{"printer", "onsite"},
			IsPinned:      true,
			UserID:        user.ID,
		},
		{
			Title:         "Reset VPN credentials",
			CompanyName:   "Borel & Fils",
			CompanyNumber: "BOR-1108",
			Content:       "Two accounts locked out after the certificate rotation.",
			Tags:          []string{"vpn"},
			UserID:        user.ID,
		},
	}
	for i := range demos {
		if err := s.db.WithContext(ctx).Create(&demos[i]).Error; err != nil {
			return err
		}
	}

	s.logger.Info("demo data seeded")
	return nil
}
