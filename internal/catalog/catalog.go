// Package catalog loads the enemy templates and item pool shipped with the
// binary.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	domain "boardquest/internal/domain/game"
)

//go:embed catalog.yaml
var catalogYAML []byte

type EnemyTemplate struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Health     int    `yaml:"health"`
	Power      int    `yaml:"power"`
	GoldReward int    `yaml:"gold_reward"`
}

type ItemTemplate struct {
	Name     string          `yaml:"name"`
	Category domain.Category `yaml:"category"`
	Rarity   domain.Rarity   `yaml:"rarity"`
	Stats    int             `yaml:"stats"`
	Effect   string          `yaml:"effect"`
	Value    int             `yaml:"value"`
}

type Catalog struct {
	Enemies []EnemyTemplate `yaml:"enemies"`
	Items   []ItemTemplate  `yaml:"items"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// MustLoad is Load for callers that cannot run without a catalog.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Enemies) == 0 {
		return errors.New("catalog has no enemies")
	}
	if len(c.Items) == 0 {
		return errors.New("catalog has no items")
	}
	for _, e := range c.Enemies {
		if e.Name == "" || e.Health <= 0 || e.Power <= 0 {
			return fmt.Errorf("invalid enemy template %q", e.ID)
		}
	}
	hasEquipment := false
	for _, it := range c.Items {
		switch it.Category {
		case domain.CategoryWeapon, domain.CategoryArmor:
			hasEquipment = true
		case domain.CategoryTrap:
			if !domain.TrapKind(it.Effect).Valid() {
				return fmt.Errorf("trap item %q has unknown effect %q", it.Name, it.Effect)
			}
		case domain.CategoryConsumable, domain.CategoryPotion, domain.CategoryMythic:
		default:
			return fmt.Errorf("item %q has unknown category %q", it.Name, it.Category)
		}
		if it.Rarity.Multiplier() == 1 && it.Rarity != domain.RarityCommon {
			return fmt.Errorf("item %q has unknown rarity %q", it.Name, it.Rarity)
		}
	}
	if !hasEquipment {
		return errors.New("catalog has no weapons or armor")
	}
	return nil
}
