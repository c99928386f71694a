package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sellerops/marketplace-hub/internal/application"
	"github.com/sellerops/marketplace-hub/internal/domain"
	mongoRepo "github.com/sellerops/marketplace-hub/internal/infrastructure/mongodb"
	"github.com/sellerops/marketplace-hub/internal/pkg/crypto"
	"github.com/sellerops/marketplace-hub/internal/pkg/logging"
	"github.com/sellerops/marketplace-hub/internal/pkg/mongodb"
	"github.com/sellerops/marketplace-hub/internal/pkg/outbox"
)

// noopOutbox satisfies the outbox dependency; the migration emits no events
type noopOutbox struct{}

func (noopOutbox) Save(context.Context, *outbox.Event) error      { return nil }
func (noopOutbox) SaveAll(context.Context, []*outbox.Event) error { return nil }
func (noopOutbox) FindUnpublished(context.Context, int) ([]*outbox.Event, error) {
	return nil, nil
}
func (noopOutbox) MarkPublished(context.Context, string) error          { return nil }
func (noopOutbox) IncrementRetry(context.Context, string, string) error { return nil }

// Migration tool that re-encrypts legacy plaintext credential documents.
// Documents written before encryption at rest carry clientId/apiKey fields
// in the clear; each one is rewritten with an encrypted blob and the
// plaintext fields are dropped.

var (
	dryRun  = flag.Bool("dry-run", true, "list legacy documents without rewriting them")
	timeout = flag.Duration("timeout", 5*time.Minute, "overall migration timeout")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger := logging.New(logging.DefaultConfig("marketplace-hub-migrate"))

	masterKey := os.Getenv("CREDENTIAL_MASTER_KEY")
	cipher, err := crypto.NewCipher(masterKey)
	if err != nil {
		log.Fatalf("initializing cipher: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := mongodb.NewClient(ctx, mongodb.DefaultConfig(), logger)
	if err != nil {
		log.Fatalf("connecting to MongoDB: %v", err)
	}
	defer client.Close(context.Background())

	credentialRepo := mongoRepo.NewCredentialRepository(client.Database())

	if *dryRun {
		legacy, err := credentialRepo.FindLegacyPlaintext(ctx)
		if err != nil {
			log.Fatalf("listing legacy credentials: %v", err)
		}
		log.Printf("dry run: %d legacy plaintext credential(s) would be re-encrypted", len(legacy))
		for _, credential := range legacy {
			log.Printf("  seller=%s marketplace=%s", credential.SellerID, credential.Marketplace)
		}
		return
	}

	service := application.NewCredentialService(credentialRepo, cipher, domain.NewFactory(), noopOutbox{}, logger)
	migrated, err := service.ReencryptLegacy(ctx)
	if err != nil {
		log.Fatalf("migration failed after %d document(s): %v", migrated, err)
	}
	log.Printf("migration complete: %d credential(s) re-encrypted", migrated)
}
