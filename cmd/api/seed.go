package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

type seedFile struct {
	Users []seedUser `yaml:"users"`
	Items []seedItem `yaml:"items"`
}

type seedUser struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type seedItem struct {
	OwnerEmail  string `yaml:"owner_email"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Available   bool   `yaml:"available"`
}

func loadSeed(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// applySeed fills an empty database. A database that already has users is left as is.
func applySeed(ctx context.Context, seed *seedFile, users domain.UserService, items domain.ItemService, logger *zerolog.Logger) error {
	existing, err := users.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Info().Int("users", len(existing)).Msg("database already populated, seed skipped")
		return nil
	}

	owners := make(map[string]int64, len(seed.Users))
	for _, u := range seed.Users {
		created, err := users.CreateUser(ctx, u.Name, u.Email)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		owners[created.Email] = created.ID
	}

	for _, it := range seed.Items {
		ownerID, ok := owners[strings.ToLower(strings.TrimSpace(it.OwnerEmail))]
		if !ok {
			return fmt.Errorf("seed item %q: unknown owner %s: %w", it.Name, it.OwnerEmail, domain.ErrUserNotFound)
		}
		if _, err := items.CreateItem(ctx, ownerID, &models.Item{
			Name:        it.Name,
			Description: it.Description,
			Available:   it.Available,
		}); err != nil {
			return fmt.Errorf("seed item %q: %w", it.Name, err)
		}
	}

	logger.Info().Int("users", len(seed.Users)).Int("items", len(seed.Items)).Msg("seed applied")
	return nil
}
