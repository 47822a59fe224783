package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/stackswars/backend/internal/store"
)

// LoadDictionary reads a JSON array of words from path and seeds the store
// with the lowercased set. Called once at boot; re-seeding an already
// populated set is harmless.
func LoadDictionary(ctx context.Context, st store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dictionary %s: %w", path, err)
	}

	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return fmt.Errorf("parse dictionary %s: %w", path, err)
	}

	for i, w := range words {
		words[i] = strings.ToLower(strings.TrimSpace(w))
	}

	if err := st.SeedDictionary(ctx, words); err != nil {
		return fmt.Errorf("seed dictionary: %w", err)
	}

	log.Printf("[GAME] dictionary seeded with %d words", len(words))
	return nil
}
