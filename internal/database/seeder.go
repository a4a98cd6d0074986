// server/internal/database/seeder.go
package database

import (
	"context"

	"blocknex-supply-api-server/config"
	"blocknex-supply-api-server/internal/auth"

	"github.com/rs/zerolog/log"
)

// SeedAdmin tạo tài khoản admin nếu chưa có. Không cấu hình thì bỏ qua.
func SeedAdmin(ctx context.Context, accounts *auth.Accounts, cfg config.SeedConfig) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Info().Msg("No admin seed configured. Seeding skipped.")
		return nil
	}

	created, err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if !created {
		log.Info().Str("email", cfg.AdminEmail).Msg("Admin already exists. Seeding skipped.")
		return nil
	}
	log.Info().Str("email", cfg.AdminEmail).Msg("Admin seeded successfully.")
	return nil
}
