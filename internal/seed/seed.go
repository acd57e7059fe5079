// Package seed populates the store with demo data for the review
// console: shops, beneficiaries, cards, a distribution history, and an
// operator account. A slice of the generated records is intentionally
// suspicious so the screening rules have something to find.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-welfare/kestrel/internal/auth"
	"github.com/opensource-welfare/kestrel/internal/domain"
)

var (
	districts = []string{"Mumbai", "Delhi", "Bangalore", "Chennai", "Kolkata", "Pune", "Hyderabad", "Ahmedabad"}
	states    = []string{"Maharashtra", "Delhi", "Karnataka", "Tamil Nadu", "West Bengal", "Maharashtra", "Telangana", "Gujarat"}

	firstNames = []string{"Rajesh", "Priya", "Amit", "Sneha", "Vikram", "Anjali", "Rahul", "Deepika", "Suresh", "Kavita"}
	lastNames  = []string{"Kumar", "Sharma", "Patel", "Singh", "Reddy", "Desai", "Mehta", "Gupta", "Verma", "Joshi"}

	streets = []string{"MG Road", "Main Street", "Park Avenue", "Gandhi Nagar", "Station Road"}

	commodities = []struct {
		name string
		unit string
	}{
		{"Rice", "kg"},
		{"Wheat", "kg"},
		{"Sugar", "kg"},
		{"Cooking Oil", "liter"},
		{"Kerosene", "liter"},
	}
)

// Options controls the volume of generated data.
type Options struct {
	Subjects     int
	Shops        int
	Transactions int

	AdminEmail    string
	AdminPassword string

	// Seed makes generation reproducible.
	Seed int64
}

// DefaultOptions mirrors the stock demo dataset.
func DefaultOptions() Options {
	return Options{
		Subjects:      50,
		Shops:         10,
		Transactions:  200,
		AdminEmail:    "admin@kestrel.local",
		AdminPassword: "changeme123",
		Seed:          1,
	}
}

// Summary reports what was created.
type Summary struct {
	Subjects     int `json:"subjects"`
	Cards        int `json:"cards"`
	Shops        int `json:"shops"`
	Transactions int `json:"transactions"`

	AdminCreated bool `json:"adminCreated"`
}

// Run writes the demo dataset through the repository.
func Run(ctx context.Context, repo domain.Repository, authSvc *auth.Service, opts Options) (*Summary, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	now := time.Now().UTC()
	summary := &Summary{}

	// Shops
	shops := make([]*domain.Shop, 0, opts.Shops)
	for i := 0; i < opts.Shops; i++ {
		shop := &domain.Shop{
			ID:       fmt.Sprintf("shop-%d", i+1),
			Code:     fmt.Sprintf("PDS-%04d", 1000+rng.Intn(9000)),
			Name:     fmt.Sprintf("Fair Price Shop %d", i+1),
			District: districts[i%len(districts)],
			State:    states[i%len(states)],
			Owner:    randomName(rng),
		}
		if err := repo.SaveShop(ctx, shop); err != nil {
			return nil, fmt.Errorf("failed to seed shop: %w", err)
		}
		shops = append(shops, shop)
		summary.Shops++
	}

	// Subjects and cards. The tail of the population reuses earlier
	// national IDs and addresses to trip the duplicate rules.
	subjects := make([]*domain.Subject, 0, opts.Subjects)
	cardsBySubject := make(map[string][]*domain.Card)
	for i := 0; i < opts.Subjects; i++ {
		di := rng.Intn(len(districts))
		cardType := []string{domain.CardTypeBPL, domain.CardTypeAPL, domain.CardTypeAAY}[rng.Intn(3)]

		nationalID := fmt.Sprintf("%04d-%04d-%04d", 1000+rng.Intn(9000), 1000+rng.Intn(9000), 1000+rng.Intn(9000))
		if len(subjects) > 0 {
			// The last subject always shares an identity so the demo set
			// is never clean.
			if i == opts.Subjects-1 || (i > 4*opts.Subjects/5 && rng.Float64() < 0.3) {
				nationalID = subjects[rng.Intn(len(subjects)/2+1)].NationalID
			}
		}

		address := fmt.Sprintf("%d %s, %s", 1+rng.Intn(999), streets[rng.Intn(len(streets))], districts[di])
		if i > 7*opts.Subjects/10 && rng.Float64() < 0.2 && len(subjects) > 0 {
			address = subjects[rng.Intn(len(subjects)/2+1)].Address
		}

		var income float64
		switch {
		case cardType == domain.CardTypeBPL && rng.Float64() < 0.15:
			// Declared income far above the BPL cutoff
			income = float64(100000 + rng.Intn(100000))
		case cardType == domain.CardTypeBPL:
			income = float64(20000 + rng.Intn(60000))
		case cardType == domain.CardTypeAPL:
			income = float64(80000 + rng.Intn(220000))
		default:
			income = float64(10000 + rng.Intn(40000))
		}

		subject := &domain.Subject{
			ID:             fmt.Sprintf("sub-%d", i+1),
			NationalID:     nationalID,
			Name:           randomName(rng),
			Address:        address,
			District:       districts[di],
			State:          states[di],
			Phone:          fmt.Sprintf("+91-%d", 7000000000+rng.Int63n(3000000000)),
			FamilySize:     1 + rng.Intn(8),
			DeclaredIncome: income,
			CardType:       cardType,
			Status:         domain.SubjectActive,
			Verification:   domain.VerificationPending,
			CreatedAt:      now.AddDate(0, 0, -(30 + rng.Intn(335))),
			UpdatedAt:      now,
		}
		if err := repo.SaveSubject(ctx, subject); err != nil {
			return nil, fmt.Errorf("failed to seed subject: %w", err)
		}
		subjects = append(subjects, subject)
		summary.Subjects++

		// Most subjects hold one card; a few hold two active cards,
		// which the multiple-entitlements rule flags.
		numCards := 1
		if rng.Float64() < 0.1 {
			numCards = 2
		}
		for j := 0; j < numCards; j++ {
			card := &domain.Card{
				ID:        fmt.Sprintf("card-%d-%d", i+1, j+1),
				Number:    fmt.Sprintf("RC-%06d", 100000+rng.Intn(900000)),
				SubjectID: subject.ID,
				Type:      cardType,
				Status:    domain.CardActive,
				IssuedAt:  now.AddDate(0, 0, -(365 + rng.Intn(730))),
			}
			if err := repo.SaveCard(ctx, card); err != nil {
				return nil, fmt.Errorf("failed to seed card: %w", err)
			}
			cardsBySubject[subject.ID] = append(cardsBySubject[subject.ID], card)
			summary.Cards++
		}
	}

	// Distribution history over the trailing month. Around one in
	// twenty baskets is oversized to give the anomaly model outliers.
	for i := 0; i < opts.Transactions; i++ {
		subject := subjects[rng.Intn(len(subjects))]
		cards := cardsBySubject[subject.ID]
		if len(cards) == 0 {
			continue
		}
		card := cards[rng.Intn(len(cards))]
		shop := shops[rng.Intn(len(shops))]

		numItems := 1 + rng.Intn(5)
		if rng.Float64() < 0.05 {
			numItems = 8 + rng.Intn(8)
		}

		items := make([]domain.LineItem, 0, numItems)
		var total float64
		for j := 0; j < numItems; j++ {
			c := commodities[rng.Intn(len(commodities))]
			quantity := float64(1 + rng.Intn(10))
			price := 10 + rng.Float64()*90
			items = append(items, domain.LineItem{
				Name:     c.name,
				Quantity: quantity,
				Unit:     c.unit,
				Price:    price,
			})
			total += quantity * price
		}

		ts := now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour)
		tx := &domain.Transaction{
			ID:          fmt.Sprintf("txn-%d", i+1),
			SubjectID:   subject.ID,
			CardNumber:  card.Number,
			ShopID:      shop.ID,
			Items:       items,
			TotalAmount: total,
			Timestamp:   ts,
			CreatedAt:   ts,
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			return nil, fmt.Errorf("failed to seed transaction: %w", err)
		}
		summary.Transactions++
	}

	// Operator account
	if opts.AdminEmail != "" && authSvc != nil {
		if _, err := repo.GetAdminByEmail(ctx, opts.AdminEmail); err != nil {
			hash, err := authSvc.HashPassword(opts.AdminPassword)
			if err != nil {
				return nil, fmt.Errorf("failed to hash admin password: %w", err)
			}
			admin := &domain.Admin{
				ID:           uuid.New().String(),
				Email:        opts.AdminEmail,
				Name:         "Seed Admin",
				PasswordHash: hash,
				Role:         "admin",
				CreatedAt:    now,
			}
			if err := repo.SaveAdmin(ctx, admin); err != nil {
				return nil, fmt.Errorf("failed to seed admin: %w", err)
			}
			summary.AdminCreated = true
		}
	}

	return summary, nil
}

func randomName(rng *rand.Rand) string {
	return firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
}
