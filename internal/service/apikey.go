package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/quantalink/qnet-gateway/internal/models"
	"github.com/quantalink/qnet-gateway/internal/repository"
	"github.com/quantalink/qnet-gateway/internal/tier"
)

// APIKeyService issues and manages API keys. Issued keys carry the tier's
// prefix, which is what the gateway classifies on; the database record exists
// for bookkeeping and revocation audits only.
type APIKeyService struct {
	repository *repository.APIKeyRepository
	classifier *tier.PrefixClassifier
}

func NewAPIKeyService(repo *repository.APIKeyRepository, classifier *tier.PrefixClassifier) *APIKeyService {
	return &APIKeyService{
		repository: repo,
		classifier: classifier,
	}
}

// HashKey returns the hex sha256 of a raw key, the only form ever persisted.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Issue generates a fresh key for the named tier. The plain key is returned
// exactly once.
func (s *APIKeyService) Issue(ctx context.Context, name, createdBy, tierName string) (string, error) {
	prefix := s.classifier.KeyPrefix(tierName)
	if prefix == "" {
		return "", fmt.Errorf("unknown tier %q", tierName)
	}

	keyBytes := make([]byte, 24)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}
	key := prefix + base64.RawURLEncoding.EncodeToString(keyBytes)

	apiKey := models.APIKey{
		KeyHash:   HashKey(key),
		Name:      name,
		CreatedBy: createdBy,
		Tier:      tierName,
		IsActive:  true,
	}

	if err := s.repository.Create(ctx, &apiKey); err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}

	return key, nil
}

func (s *APIKeyService) Get(ctx context.Context, id string) (*models.APIKey, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *APIKeyService) List(ctx context.Context) ([]models.APIKey, error) {
	return s.repository.List(ctx)
}

func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	return s.repository.Deactivate(ctx, id)
}

func (s *APIKeyService) Delete(ctx context.Context, id string) error {
	return s.repository.Delete(ctx, id)
}

// TouchLastUsed stamps the record for an observed key hash. Failures are not
// surfaced; this is best-effort bookkeeping off the hot path.
func (s *APIKeyService) TouchLastUsed(ctx context.Context, keyHash string) {
	apiKey, err := s.repository.FindByHash(ctx, keyHash)
	if err != nil || apiKey == nil {
		return
	}
	s.repository.UpdateLastUsed(ctx, apiKey.ID)
}
