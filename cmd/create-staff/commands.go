package main

import (
	"context"
	"fmt"
	"time"

	"civicsync-api/config"
	"civicsync-api/logger"
	"civicsync-api/models"
	"civicsync-api/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func openAuth(ctx context.Context) (*services.AuthService, func(), error) {
	_ = godotenv.Load()
	cfg := config.Load()
	l := logger.New(cfg.Env)

	store, err := config.OpenStore(ctx, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = store.Close(context.Background()) }
	return services.NewAuthService(store.Users, nil, cfg.JWTSecret, l), closeFn, nil
}

func runPromote(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	auth, closeFn, err := openAuth(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	user, err := auth.Promote(ctx, email, models.Role(role))
	if err != nil {
		return fmt.Errorf("promote %s: %w", email, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Name, user.Email, user.Role)
	return nil
}

func runCreate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if !models.IsValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}

	auth, closeFn, err := openAuth(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	user, err := auth.Register(ctx, services.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("create %s: %w", email, err)
	}
	if user, err = auth.Promote(ctx, user.Email, models.Role(role)); err != nil {
		return fmt.Errorf("grant %s to %s: %w", role, email, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with role %s, id %s\n", user.Name, user.Email, user.Role, user.ID.Hex())
	return nil
}
