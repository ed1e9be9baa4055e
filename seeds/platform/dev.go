package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/rollout"
)

const (
	devPartnerID  = "partner_skyfare_dev_00000001"
	devPartner2ID = "partner_stayhub_dev_00000001"

	// Raw dev keys are deterministic so local tooling and the e2e suite can
	// authenticate without scraping seed output.
	devPlatformKey = "vya_dev_platform_key_000000000000000001"
	devPartnerKey  = "vya_dev_skyfare_key_0000000000000000001"

	devEmailWelcomeID = "email_welcome_dev_0000000001"
	devEmailBookingID = "email_booking_dev_0000000001"
)

type providersFile struct {
	Providers []providerEntry `yaml:"providers"`
}

type providerEntry struct {
	ID          string `yaml:"id"`
	PartnerID   string `yaml:"partner_id"`
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Category    string `yaml:"category"`
	HealthURL   string `yaml:"health_url"`
	APIURL      string `yaml:"api_url"`
	Status      string `yaml:"status"`
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("Seeding platform database...")

	// --- Partners ---

	fmt.Println("  Inserting partner (SkyFare Group)...")
	if err := upsertPartner(ctx, pool, devPartnerID, "SkyFare Group", "skyfare-group", "dev@skyfare.test"); err != nil {
		fmt.Fprintf(os.Stderr, "insert partner: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("  Inserting partner (StayHub Travel)...")
	if err := upsertPartner(ctx, pool, devPartner2ID, "StayHub Travel", "stayhub-travel", "dev@stayhub.test"); err != nil {
		fmt.Fprintf(os.Stderr, "insert partner 2: %v\n", err)
		os.Exit(1)
	}

	// --- Providers from YAML ---

	fmt.Println("  Seeding providers from YAML...")
	if err := seedProviders(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "seed providers: %v\n", err)
		os.Exit(1)
	}

	// --- API keys ---

	fmt.Println("  Inserting dev API keys...")
	if err := seedAPIKeys(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "seed api keys: %v\n", err)
		os.Exit(1)
	}

	// --- Rollout state ---

	fmt.Println("  Seeding rollout state...")
	if err := seedRolloutState(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "seed rollout state: %v\n", err)
		os.Exit(1)
	}

	// --- Sample emails ---

	fmt.Println("  Inserting sample emails...")
	if err := seedEmails(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "seed emails: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Seed complete!")
	fmt.Println()
	fmt.Println("  Partner portal logins:")
	fmt.Println("    dev@skyfare.test / password")
	fmt.Println("    dev@stayhub.test / password")
	fmt.Println()
	fmt.Printf("  Platform API key: %s\n", devPlatformKey)
	fmt.Printf("  Partner API key:  %s\n", devPartnerKey)
}

// upsertPartner inserts a partner with the shared dev password. Re-runs
// refresh the contact email but never touch an existing password hash.
func upsertPartner(ctx context.Context, pool *pgxpool.Pool, id, name, slug, email string) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO partners (id, name, slug, contact_email, password_hash, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (id) DO UPDATE SET contact_email = EXCLUDED.contact_email, updated_at = now()`,
		id, name, slug, email, string(passwordHash), model.StatusActive)
	return err
}

// seedProviders reads seeds/platform/providers.yaml and upserts rows into
// the providers table.
func seedProviders(ctx context.Context, pool *pgxpool.Pool) error {
	// Resolve path relative to this source file so it works regardless of cwd.
	_, thisFile, _, _ := runtime.Caller(0)
	yamlPath := filepath.Join(filepath.Dir(thisFile), "providers.yaml")

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return fmt.Errorf("read providers.yaml: %w", err)
	}

	var pf providersFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse providers.yaml: %w", err)
	}

	for _, p := range pf.Providers {
		fmt.Printf("    Upserting provider %s (%s)\n", p.Name, p.Category)
		_, err := pool.Exec(ctx,
			`INSERT INTO providers (id, partner_id, name, display_name, category, health_url, api_url, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   partner_id = EXCLUDED.partner_id,
			   display_name = EXCLUDED.display_name,
			   category = EXCLUDED.category,
			   health_url = EXCLUDED.health_url,
			   api_url = EXCLUDED.api_url,
			   status = EXCLUDED.status,
			   updated_at = now()`,
			p.ID, nullable(p.PartnerID), p.Name, p.DisplayName, p.Category,
			nullable(p.HealthURL), nullable(p.APIURL), p.Status)
		if err != nil {
			return fmt.Errorf("upsert provider %s: %w", p.Name, err)
		}
	}

	return nil
}

// seedAPIKeys stores the two well-known dev keys. Existing keys are left
// alone so re-runs stay idempotent.
func seedAPIKeys(ctx context.Context, pool *pgxpool.Pool) error {
	keys := core.NewAPIKeyService(pool)

	ensure := func(name, rawKey string, partnerID *string, scopes []string) error {
		_, err := keys.Verify(ctx, rawKey)
		if err == nil {
			fmt.Printf("    Key %s already present\n", name)
			return nil
		}
		if !errors.Is(err, model.ErrAPIKeyNotFound) {
			return fmt.Errorf("check key %s: %w", name, err)
		}
		if _, err := keys.CreateWithRawKey(ctx, name, rawKey, partnerID, scopes); err != nil {
			return fmt.Errorf("create key %s: %w", name, err)
		}
		fmt.Printf("    Created key %s\n", name)
		return nil
	}

	if err := ensure("dev-platform", devPlatformKey, nil, nil); err != nil {
		return err
	}

	partnerID := devPartnerID
	return ensure("dev-skyfare", devPartnerKey, &partnerID, []string{
		"providers:read", "health:read", "marketplace:*", "emails:*", "assistant:*",
	})
}

// seedRolloutState writes an admin_only starting state so the assistant is
// usable in dev without an API call first. A state that already exists is
// never overwritten; phase changes made through the API must survive
// re-seeding.
func seedRolloutState(ctx context.Context, pool *pgxpool.Pool) error {
	store := rollout.NewPGStore(pool)

	existing, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Println("    Rollout state already present, leaving it alone")
		return nil
	}

	state := rollout.DefaultState()
	state.Current = rollout.PhaseAdminOnly
	return store.Save(ctx, state)
}

// seedEmails inserts a couple of queue entries in different states so the
// dashboard and email list have something to show.
func seedEmails(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO email_queue (id, to_address, subject, body_text, status, attempts, queued_at)
		 VALUES ($1, $2, $3, $4, $5, 0, now()) ON CONFLICT DO NOTHING`,
		devEmailWelcomeID, "dev@skyfare.test", "Welcome to Voyara",
		"Your partner account is ready. Sign in to manage your integrations.",
		model.EmailQueued)
	if err != nil {
		return fmt.Errorf("insert welcome email: %w", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO email_queue (id, to_address, subject, body_text, status, attempts, queued_at, sent_at)
		 VALUES ($1, $2, $3, $4, $5, 1, now() - interval '1 hour', now() - interval '59 minutes')
		 ON CONFLICT DO NOTHING`,
		devEmailBookingID, "traveler@example.test", "Your booking is confirmed",
		"Booking VYA-10342 is confirmed. Details are attached to your itinerary page.",
		model.EmailSent)
	if err != nil {
		return fmt.Errorf("insert booking email: %w", err)
	}

	return nil
}

// nullable maps empty YAML strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
