package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/models"
	"github.com/dmitrijs2005/keyproxy/internal/server/store"
	"github.com/google/uuid"
)

// KeyView is the display form of a stored key.
type KeyView struct {
	ID       string `json:"id"`
	Mask     string `json:"mask"`
	Source   string `json:"source"`
	IsActive bool   `json:"isActive"`
}

// KeySet is what the key management endpoints return.
type KeySet struct {
	ActiveID string    `json:"activeId"`
	HasKey   bool      `json:"hasKey"`
	Keys     []KeyView `json:"keys"`
}

type UsageView struct {
	TotalCalls int64      `json:"totalCalls"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

type Profile struct {
	HasKey        bool      `json:"hasKey"`
	ActiveKeyMask string    `json:"activeKeyMask"`
	Usage         UsageView `json:"usage"`
}

// plainKey is a stored key with its decrypted value.
type plainKey struct {
	models.APIKey
	value string
}

// APIKeyService applies the key rules on top of the store: the environment
// key is imported once, exactly one key is active when any exist, and raw
// values never leave the service except as request headers.
type APIKeyService struct {
	keys      KeyStore
	usage     UsageStore
	cipher    *cryptox.Cipher
	validator *Validator
	envKey    string
	logger    logging.Logger
}

func NewAPIKeyService(keys KeyStore, usage UsageStore, cipher *cryptox.Cipher, validator *Validator, envKey string, logger logging.Logger) *APIKeyService {
	return &APIKeyService{
		keys:      keys,
		usage:     usage,
		cipher:    cipher,
		validator: validator,
		envKey:    envKey,
		logger:    logger,
	}
}

// decrypt drops keys that no longer decrypt, e.g. after a secret rotation.
// It also returns the id of the active key among the survivors.
func (s *APIKeyService) decrypt(keys []models.APIKey) ([]plainKey, string) {
	out := make([]plainKey, 0, len(keys))
	activeID := ""
	for _, k := range keys {
		v := s.cipher.Decrypt(k.EncryptedValue)
		if v == "" {
			continue
		}
		out = append(out, plainKey{APIKey: k, value: v})
		if k.IsActive {
			activeID = k.ID
		}
	}
	return out, activeID
}

func (s *APIKeyService) firstUsable(remaining []models.APIKey) string {
	plain, _ := s.decrypt(remaining)
	if len(plain) == 0 {
		return ""
	}
	return plain[0].ID
}

// validKeyID rejects ids the service could never have issued.
func validKeyID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *APIKeyService) newKey(value, source string) (models.APIKey, error) {
	enc, err := s.cipher.Encrypt(value)
	if err != nil {
		return models.APIKey{}, fmt.Errorf("encrypt key: %w", err)
	}
	return models.APIKey{ID: uuid.NewString(), EncryptedValue: enc, Source: source}, nil
}

func stored(keys []plainKey) []models.APIKey {
	out := make([]models.APIKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.APIKey)
	}
	return out
}

// Bootstrap imports the environment key for userID if its value is not
// stored yet, and makes sure some key is active. Repeated calls change
// nothing.
func (s *APIKeyService) Bootstrap(ctx context.Context, userID string) error {
	_, err := s.keys.UpdateKeys(ctx, userID, func(current []models.APIKey) (*store.KeyChange, error) {
		plain, activeID := s.decrypt(current)
		changed := false
		addedID := ""

		if s.envKey != "" && !containsValue(plain, s.envKey) {
			k, err := s.newKey(s.envKey, models.SourceEnv)
			if err != nil {
				return nil, err
			}
			plain = append(plain, plainKey{APIKey: k, value: s.envKey})
			addedID = k.ID
			changed = true
		}

		if activeID == "" && len(plain) > 0 {
			activeID = plain[0].ID
			if addedID != "" {
				activeID = addedID
			}
			changed = true
		}

		if !changed {
			return nil, nil
		}
		return &store.KeyChange{Keys: stored(plain), ActiveID: activeID}, nil
	})
	return err
}

func containsValue(keys []plainKey, value string) bool {
	for _, k := range keys {
		if k.value == value {
			return true
		}
	}
	return false
}

// ActiveValue returns the decrypted active key, falling back to the
// environment key (which may be empty).
func (s *APIKeyService) ActiveValue(ctx context.Context, userID string) (string, error) {
	keys, err := s.keys.ListKeys(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.activeValue(keys), nil
}

func (s *APIKeyService) activeValue(keys []models.APIKey) string {
	plain, activeID := s.decrypt(keys)
	for _, k := range plain {
		if k.ID == activeID {
			return k.value
		}
	}
	return s.envKey
}

// Add stores value as a custom key and activates it.
func (s *APIKeyService) Add(ctx context.Context, userID, value string) (*KeySet, error) {
	value = strings.TrimSpace(value)
	if err := s.validator.APIKey(value); err != nil {
		return nil, err
	}

	keys, err := s.keys.UpdateKeys(ctx, userID, func(current []models.APIKey) (*store.KeyChange, error) {
		plain, _ := s.decrypt(current)
		if containsValue(plain, value) {
			return nil, apperr.Validation("API key already exists")
		}

		k, err := s.newKey(value, models.SourceCustom)
		if err != nil {
			return nil, err
		}
		plain = append(plain, plainKey{APIKey: k, value: value})
		return &store.KeyChange{Keys: stored(plain), ActiveID: k.ID}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "api key added", "user_id", userID, "mask", cryptox.MaskKey(value))
	return s.serialize(keys), nil
}

// Delete removes one of the user's keys. A deleted active key is succeeded
// by the oldest key that still decrypts.
func (s *APIKeyService) Delete(ctx context.Context, userID, keyID string) (*KeySet, error) {
	keyID = strings.TrimSpace(keyID)
	if !validKeyID(keyID) {
		return nil, apperr.NotFound("API key not found")
	}

	ok, err := s.keys.DeleteKey(ctx, userID, keyID, s.firstUsable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("API key not found")
	}
	return s.Serialize(ctx, userID)
}

// SetActive switches the active key.
func (s *APIKeyService) SetActive(ctx context.Context, userID, keyID string) (*KeySet, error) {
	keyID = strings.TrimSpace(keyID)
	if !validKeyID(keyID) {
		return nil, apperr.Validation("Invalid API key")
	}

	ok, err := s.keys.SetActiveKey(ctx, userID, keyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("Invalid API key")
	}
	return s.Serialize(ctx, userID)
}

// BuildHeaders returns the upstream request headers for userID.
func (s *APIKeyService) BuildHeaders(ctx context.Context, userID string) (http.Header, error) {
	value, err := s.ActiveValue(ctx, userID)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, apperr.Validation("Missing API key. Add one in API key management.")
	}

	h := make(http.Header)
	h.Set("Authorization", "Bearer "+value)
	h.Set("Content-Type", "application/json")
	return h, nil
}

// Serialize lists the user's keys in display form.
func (s *APIKeyService) Serialize(ctx context.Context, userID string) (*KeySet, error) {
	keys, err := s.keys.ListKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.serialize(keys), nil
}

func (s *APIKeyService) serialize(keys []models.APIKey) *KeySet {
	plain, activeID := s.decrypt(keys)

	set := &KeySet{
		ActiveID: activeID,
		HasKey:   s.activeValue(keys) != "",
		Keys:     make([]KeyView, 0, len(plain)),
	}
	for _, k := range plain {
		set.Keys = append(set.Keys, KeyView{
			ID:       k.ID,
			Mask:     cryptox.MaskKey(k.value),
			Source:   k.Source,
			IsActive: k.ID == activeID,
		})
	}
	return set
}

// Profile summarises the active key and usage counters.
func (s *APIKeyService) Profile(ctx context.Context, userID string) (*Profile, error) {
	value, err := s.ActiveValue(ctx, userID)
	if err != nil {
		return nil, err
	}

	st, err := s.usage.GetUsage(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		HasKey:        value != "",
		ActiveKeyMask: cryptox.MaskKey(value),
		Usage:         UsageView{TotalCalls: st.TotalCalls, LastUsedAt: st.LastUsedAt},
	}, nil
}
