package reward

import (
	"math/rand"

	"boardquest/internal/catalog"
	domain "boardquest/internal/domain/game"
)

type rarityWeight struct {
	rarity domain.Rarity
	weight int
}

// Cumulative drop table; weights sum to 100.
var rarityTable = []rarityWeight{
	{domain.RarityCommon, 50},
	{domain.RarityUncommon, 30},
	{domain.RarityRare, 12},
	{domain.RarityVeryRare, 6},
	{domain.RarityLegendary, 2},
}

type Generator struct {
	pool []catalog.ItemTemplate
}

func NewGenerator(c *catalog.Catalog) *Generator {
	return &Generator{pool: c.Items}
}

// RandomRarity draws a tier from the drop table.
func (g *Generator) RandomRarity(rng *rand.Rand) domain.Rarity {
	total := 0
	for _, rw := range rarityTable {
		total += rw.weight
	}
	roll := rng.Intn(total)
	acc := 0
	for _, rw := range rarityTable {
		acc += rw.weight
		if roll < acc {
			return rw.rarity
		}
	}
	return domain.RarityCommon
}

func (g *Generator) RandomItem(rng *rand.Rand) domain.Item {
	return g.RandomItemOfRarity(rng, g.RandomRarity(rng))
}

func (g *Generator) RandomItemOfRarity(rng *rand.Rand, rarity domain.Rarity) domain.Item {
	return g.pick(rng, g.pool, rarity)
}

// RandomItemOfCategory draws a rarity and picks among templates of the given
// categories. An empty filter result falls back to the whole pool.
func (g *Generator) RandomItemOfCategory(rng *rand.Rand, categories ...domain.Category) domain.Item {
	filtered := make([]catalog.ItemTemplate, 0, len(g.pool))
	for _, tpl := range g.pool {
		for _, c := range categories {
			if tpl.Category == c {
				filtered = append(filtered, tpl)
				break
			}
		}
	}
	if len(filtered) == 0 {
		filtered = g.pool
	}
	return g.pick(rng, filtered, g.RandomRarity(rng))
}

func (g *Generator) pick(rng *rand.Rand, pool []catalog.ItemTemplate, rarity domain.Rarity) domain.Item {
	bucket := make([]catalog.ItemTemplate, 0, len(pool))
	for _, tpl := range pool {
		if tpl.Rarity == rarity {
			bucket = append(bucket, tpl)
		}
	}
	if len(bucket) == 0 {
		bucket = pool
	}
	tpl := bucket[rng.Intn(len(bucket))]
	return instantiate(rng, tpl, rarity)
}

func instantiate(rng *rand.Rand, tpl catalog.ItemTemplate, rarity domain.Rarity) domain.Item {
	mult := rarity.Multiplier()
	return domain.Item{
		ID:       domain.NewID(rng),
		Name:     tpl.Name,
		Category: tpl.Category,
		Rarity:   rarity,
		Stats:    tpl.Stats * mult,
		Effect:   tpl.Effect,
		Value:    tpl.Value * mult,
	}
}
