package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sellerops/marketplace-hub/internal/domain"
	"github.com/sellerops/marketplace-hub/internal/pkg/crypto"
)

func newCredentialService(repo *fakeCredentialRepo, outboxRepo *recordingOutbox) *CredentialService {
	cipher, err := crypto.NewCipher("test-master-secret")
	if err != nil {
		panic(err)
	}
	factory := domain.NewFactory()
	return NewCredentialService(repo, cipher, factory, outboxRepo, newTestLogger())
}

func TestCredentialSaveEncryptsAtRest(t *testing.T) {
	repo := &fakeCredentialRepo{}
	repo.findFn = func(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
		return nil, domain.ErrCredentialNotFound
	}
	var saved *domain.APICredential
	repo.saveFn = func(ctx context.Context, credential *domain.APICredential) error {
		saved = credential
		return nil
	}

	service := newCredentialService(repo, &recordingOutbox{})
	dto, err := service.Save(context.Background(), SaveCredentialCommand{
		SellerID:    "seller-1",
		Marketplace: domain.MarketplaceOzon,
		ClientID:    "client-12345",
		APIKey:      "super-secret-key",
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	require.NotEmpty(t, saved.EncryptedBlob)
	require.NotContains(t, saved.EncryptedBlob, "super-secret-key")
	require.NotContains(t, saved.EncryptedBlob, "client-12345")

	require.True(t, dto.Encrypted)
	require.Equal(t, "********2345", dto.ClientID)
}

func TestCredentialSaveOverExistingRotates(t *testing.T) {
	outboxRepo := &recordingOutbox{}
	repo := &fakeCredentialRepo{}
	service := newCredentialService(repo, outboxRepo)

	existing := domain.NewAPICredential("seller-1", domain.MarketplaceWB, "v1:old:blob")
	repo.findFn = func(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
		return existing, nil
	}
	repo.saveFn = func(ctx context.Context, credential *domain.APICredential) error {
		require.Same(t, existing, credential)
		return nil
	}

	_, err := service.Save(context.Background(), SaveCredentialCommand{
		SellerID:    "seller-1",
		Marketplace: domain.MarketplaceWB,
		APIKey:      "rotated-token",
	})
	require.NoError(t, err)
	require.NotEqual(t, "v1:old:blob", existing.EncryptedBlob)
	require.Contains(t, outboxRepo.eventTypes(), "credential.rotated")
}

func TestCredentialResolveRoundTrip(t *testing.T) {
	repo := &fakeCredentialRepo{}
	service := newCredentialService(repo, &recordingOutbox{})

	var stored *domain.APICredential
	repo.findFn = func(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
		if stored == nil {
			return nil, domain.ErrCredentialNotFound
		}
		return stored, nil
	}
	repo.saveFn = func(ctx context.Context, credential *domain.APICredential) error {
		stored = credential
		return nil
	}

	_, err := service.Save(context.Background(), SaveCredentialCommand{
		SellerID:    "seller-1",
		Marketplace: domain.MarketplaceYandex,
		ClientID:    "app-id",
		APIKey:      "oauth-token",
		CampaignID:  "12345",
	})
	require.NoError(t, err)

	creds, err := service.Resolve(context.Background(), "seller-1", domain.MarketplaceYandex)
	require.NoError(t, err)
	require.Equal(t, domain.Credentials{
		ClientID:   "app-id",
		APIKey:     "oauth-token",
		CampaignID: "12345",
	}, creds)
}

func TestCredentialResolveLegacyPlaintext(t *testing.T) {
	repo := &fakeCredentialRepo{}
	repo.findFn = func(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
		return &domain.APICredential{
			SellerID:       sellerID,
			Marketplace:    marketplace,
			LegacyClientID: "legacy-client",
			LegacyAPIKey:   "legacy-key",
		}, nil
	}

	service := newCredentialService(repo, &recordingOutbox{})
	creds, err := service.Resolve(context.Background(), "seller-1", domain.MarketplaceOzon)
	require.NoError(t, err)
	require.Equal(t, "legacy-client", creds.ClientID)
	require.Equal(t, "legacy-key", creds.APIKey)
}

func TestReencryptLegacyMigratesAllDocuments(t *testing.T) {
	repo := &fakeCredentialRepo{}
	service := newCredentialService(repo, &recordingOutbox{})

	legacy := []*domain.APICredential{
		{SellerID: "seller-1", Marketplace: domain.MarketplaceOzon, LegacyClientID: "c1", LegacyAPIKey: "k1"},
		{SellerID: "seller-2", Marketplace: domain.MarketplaceWB, LegacyAPIKey: "k2"},
	}
	repo.findLegacyPlaintextFn = func(ctx context.Context) ([]*domain.APICredential, error) {
		return legacy, nil
	}
	var saved []*domain.APICredential
	repo.saveFn = func(ctx context.Context, credential *domain.APICredential) error {
		saved = append(saved, credential)
		return nil
	}

	migrated, err := service.ReencryptLegacy(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, migrated)
	require.Len(t, saved, 2)
	for _, credential := range saved {
		require.NotEmpty(t, credential.EncryptedBlob)
		require.Empty(t, credential.LegacyAPIKey)
		require.False(t, credential.IsLegacyPlaintext())
	}
}

func TestConnectorUnknownMarketplace(t *testing.T) {
	repo := &fakeCredentialRepo{}
	repo.findFn = func(ctx context.Context, sellerID string, marketplace domain.Marketplace) (*domain.APICredential, error) {
		return &domain.APICredential{
			SellerID:       sellerID,
			Marketplace:    marketplace,
			LegacyClientID: "c",
			LegacyAPIKey:   "k",
		}, nil
	}

	service := newCredentialService(repo, &recordingOutbox{})
	_, err := service.Connector(context.Background(), "seller-1", domain.Marketplace("aliexpress"))
	require.Error(t, err)
	require.True(t, domain.IsErrorKind(err, domain.ErrKindValidation))
}
