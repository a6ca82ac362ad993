package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/campuspoints/points-api/internal/config"
	"github.com/campuspoints/points-api/internal/domain/user"
	"github.com/campuspoints/points-api/internal/pkg/database"
	"github.com/campuspoints/points-api/internal/pkg/password"
	"github.com/campuspoints/points-api/internal/pkg/validator"
)

// createsuper bootstraps the first superuser account. Unlike regular
// registration the account is created verified and with a password, so it
// can log in immediately.
func main() {
	utorid := flag.String("utorid", "", "utorid of the superuser (8 alphanumerics)")
	name := flag.String("name", "", "display name")
	email := flag.String("email", "", "email address")
	pass := flag.String("password", "", "initial password")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if *utorid == "" || *name == "" || *email == "" || *pass == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := validator.ValidateVar(*utorid, "utorid"); err != nil {
		log.Fatal().Msg("utorid must be exactly 8 alphanumeric characters")
	}
	if err := password.CheckPolicy(*pass); err != nil {
		log.Fatal().Err(err).Msg("password rejected")
	}

	cfg := config.Load()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	repo := user.NewRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := repo.GetByUtorid(ctx, *utorid)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check existing user")
	}
	if existing != nil {
		log.Fatal().Str("utorid", *utorid).Msg("User already exists")
	}

	hash, err := password.Hash(*pass)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	u := &user.User{
		ID:           uuid.New(),
		Utorid:       *utorid,
		Name:         *name,
		Email:        *email,
		PasswordHash: hash,
		Role:         user.RoleSuperuser,
		Verified:     true,
	}
	if err := repo.Create(ctx, u); err != nil {
		log.Fatal().Err(err).Msg("Failed to create superuser")
	}

	log.Info().Str("utorid", u.Utorid).Str("id", u.ID.String()).Msg("Superuser created")
}
