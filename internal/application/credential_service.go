package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/kafka"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/outbox"
)

// credentialPayload is the shape encrypted into APICredential.EncryptedBlob
type credentialPayload struct {
	ClientID   string `json:"clientId"`
	APIKey     string `json:"apiKey"`
	CampaignID string `json:"campaignId,omitempty"`
}

// CredentialService manages encrypted marketplace credentials and hands out
// credential-bound connectors. Plaintext exists only transiently inside a
// single call.
type CredentialService struct {
	credentials domain.CredentialRepository
	cipher      domain.CredentialCipher
	factory     *domain.Factory
	outbox      outbox.Repository
	logger      *logging.Logger
}

// NewCredentialService creates a credential service
func NewCredentialService(
	credentials domain.CredentialRepository,
	cipher domain.CredentialCipher,
	factory *domain.Factory,
	outboxRepo outbox.Repository,
	logger *logging.Logger,
) *CredentialService {
	return &CredentialService{
		credentials: credentials,
		cipher:      cipher,
		factory:     factory,
		outbox:      outboxRepo,
		logger:      logger.WithComponent("credential-service"),
	}
}

// Save stores a credential, encrypting the payload at rest. Saving over an
// existing credential rotates it.
func (s *CredentialService) Save(ctx context.Context, cmd SaveCredentialCommand) (*CredentialDTO, error) {
	blob, err := s.encrypt(cmd.ClientID, cmd.APIKey, cmd.CampaignID)
	if err != nil {
		return nil, err
	}

	existing, err := s.credentials.Find(ctx, cmd.SellerID, cmd.Marketplace)
	if err != nil && !errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	credential := existing
	rotated := existing != nil
	if rotated {
		credential.Rotate(blob)
	} else {
		credential = domain.NewAPICredential(cmd.SellerID, cmd.Marketplace, blob)
	}

	if err := s.credentials.Save(ctx, credential); err != nil {
		return nil, fmt.Errorf("saving credential: %w", err)
	}

	if rotated {
		s.appendEvent(ctx, cmd.SellerID, &domain.CredentialRotatedEvent{
			SellerID:    cmd.SellerID,
			Marketplace: cmd.Marketplace,
			RotatedAt:   time.Now().UTC(),
		})
	}

	return toCredentialDTO(credential, cmd.ClientID), nil
}

// Get returns credential metadata without secret material
func (s *CredentialService) Get(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*CredentialDTO, error) {
	credential, err := s.credentials.Find(ctx, sellerID, marketplace)
	if err != nil {
		return nil, err
	}
	clientID := credential.LegacyClientID
	if credential.EncryptedBlob != "" {
		if payload, err := s.decrypt(credential.EncryptedBlob); err == nil {
			clientID = payload.ClientID
		}
	}
	return toCredentialDTO(credential, clientID), nil
}

// Delete removes a credential
func (s *CredentialService) Delete(ctx context.Context, sellerID string, marketplace domain.Marketplace) error {
	return s.credentials.Delete(ctx, sellerID, marketplace)
}

// Resolve returns the decrypted credentials for one outbound call. Legacy
// plaintext documents resolve from their unencrypted fields until the
// migration rewrites them.
func (s *CredentialService) Resolve(ctx context.Context, sellerID string, marketplace domain.Marketplace) (domain.Credentials, error) {
	credential, err := s.credentials.Find(ctx, sellerID, marketplace)
	if err != nil {
		return domain.Credentials{}, err
	}

	if credential.IsLegacyPlaintext() {
		return domain.Credentials{
			ClientID:   credential.LegacyClientID,
			APIKey:     credential.LegacyAPIKey,
			CampaignID: credential.LegacyCampaignID,
		}, nil
	}

	payload, err := s.decrypt(credential.EncryptedBlob)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("decrypting credential for seller %s: %w", sellerID, err)
	}
	return domain.Credentials{
		ClientID:   payload.ClientID,
		APIKey:     payload.APIKey,
		CampaignID: payload.CampaignID,
	}, nil
}

// Connector returns a fresh adapter bound to the seller's credentials
func (s *CredentialService) Connector(ctx context.Context, sellerID string, marketplace domain.Marketplace) (domain.MarketplaceAdapter, error) {
	creds, err := s.Resolve(ctx, sellerID, marketplace)
	if err != nil {
		return nil, err
	}
	return s.factory.Connector(marketplace, creds)
}

// ReencryptLegacy rewrites every legacy plaintext credential document with
// an encrypted blob. Returns the number of migrated documents.
func (s *CredentialService) ReencryptLegacy(ctx context.Context) (int, error) {
	legacy, err := s.credentials.FindLegacyPlaintext(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing legacy credentials: %w", err)
	}

	migrated := 0
	for _, credential := range legacy {
		blob, err := s.encrypt(credential.LegacyClientID, credential.LegacyAPIKey, credential.LegacyCampaignID)
		if err != nil {
			return migrated, fmt.Errorf("encrypting credential for seller %s: %w", credential.SellerID, err)
		}
		credential.Rotate(blob)
		if err := s.credentials.Save(ctx, credential); err != nil {
			return migrated, fmt.Errorf("saving credential for seller %s: %w", credential.SellerID, err)
		}
		migrated++
		s.logger.WithContext(ctx).Info("credential re-encrypted",
			"seller_id", credential.SellerID,
			"marketplace", string(credential.Marketplace))
	}
	return migrated, nil
}

func (s *CredentialService) encrypt(clientID, apiKey, campaignID string) (string, error) {
	plaintext, err := json.Marshal(credentialPayload{
		ClientID:   clientID,
		APIKey:     apiKey,
		CampaignID: campaignID,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling credential payload: %w", err)
	}
	blob, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypting credential payload: %w", err)
	}
	return blob, nil
}

func (s *CredentialService) decrypt(blob string) (*credentialPayload, error) {
	plaintext, err := s.cipher.Decrypt(blob)
	if err != nil {
		return nil, err
	}
	var payload credentialPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling credential payload: %w", err)
	}
	return &payload, nil
}

func (s *CredentialService) appendEvent(ctx context.Context, sellerID string, event domain.DomainEvent) {
	evt, err := outbox.NewEvent(sellerID, "credential", kafka.Topics.CredentialEvents, event)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("building outbox event", "event_type", event.EventType())
		return
	}
	if err := s.outbox.Save(ctx, evt); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("saving outbox event", "event_type", event.EventType())
	}
}

func toCredentialDTO(credential *domain.APICredential, clientID string) *CredentialDTO {
	return &CredentialDTO{
		SellerID:    credential.SellerID,
		Marketplace: credential.Marketplace,
		ClientID:    maskIdentifier(clientID),
		Encrypted:   !credential.IsLegacyPlaintext(),
		CreatedAt:   credential.CreatedAt,
		UpdatedAt:   credential.UpdatedAt,
	}
}
