package catalog

import (
	"testing"

	domain "boardquest/internal/domain/game"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(c.Enemies) < 3 {
		t.Fatalf("expected at least 3 enemies, got %d", len(c.Enemies))
	}

	seen := map[domain.Rarity]bool{}
	for _, it := range c.Items {
		if it.Category == domain.CategoryWeapon || it.Category == domain.CategoryArmor {
			seen[it.Rarity] = true
		}
	}
	for _, r := range domain.Rarities {
		if !seen[r] {
			t.Errorf("no weapon or armor of rarity %s", r)
		}
	}
}

func TestParseRejectsUnknownTrapEffect(t *testing.T) {
	doc := []byte(`
enemies:
  - {id: goblin, name: Goblin, health: 10, power: 5, gold_reward: 1}
items:
  - {name: Sword, category: weapon, rarity: common, stats: 1, value: 1}
  - {name: Odd Trap, category: trap, rarity: common, stats: 1, effect: tickle, value: 1}
`)
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected error for unknown trap effect")
	}
}

func TestParseRejectsEmptyEnemies(t *testing.T) {
	doc := []byte(`
items:
  - {name: Sword, category: weapon, rarity: common, stats: 1, value: 1}
`)
	if _, err := Parse(doc); err == nil {
		t.Fatal("expected error for catalog without enemies")
	}
}
