package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// EnvProvider reads a JSON cookie array from an environment variable
type EnvProvider struct {
	envVar string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider reading envVar
func NewEnvProvider(envVar string) *EnvProvider {
	return &EnvProvider{envVar: envVar, lookup: os.LookupEnv}
}

func (p *EnvProvider) Name() string {
	return "env:" + p.envVar
}

func (p *EnvProvider) Load(ctx context.Context) ([]*models.Cookie, bool, error) {
	if p.envVar == "" {
		return nil, false, nil
	}
	raw, ok := p.lookup(p.envVar)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false, nil
	}

	var cookies []*models.Cookie
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		return nil, false, fmt.Errorf("failed to parse %s: %w", p.envVar, err)
	}
	return cookies, len(cookies) > 0, nil
}

// StorageProvider reads the cookies saved by the last successful login
type StorageProvider struct {
	storage interfaces.SessionStorage
}

// NewStorageProvider creates a provider backed by the durable session store
func NewStorageProvider(storage interfaces.SessionStorage) *StorageProvider {
	return &StorageProvider{storage: storage}
}

func (p *StorageProvider) Name() string {
	return "store"
}

func (p *StorageProvider) Load(ctx context.Context) ([]*models.Cookie, bool, error) {
	return p.storage.LoadCookies(ctx)
}
