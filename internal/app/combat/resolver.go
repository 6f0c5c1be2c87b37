// Package combat resolves one-on-one dice battles between a player and an
// enemy. Every function takes a BattleState by value, returns the next one
// and appends exactly one round to it.
package combat

import (
	"fmt"

	domain "boardquest/internal/domain/game"
)

const (
	baseAC          = 10
	defendBonus     = 2
	enemyInitiative = 2
)

// Source supplies dice rolls. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Snapshot is the player's side of a battle at the moment it starts.
type Snapshot struct {
	Health    int
	MaxHealth int
	Attack    int
	Defense   int
	Speed     int
}

type Outcome struct {
	PlayerWon   bool
	DamageTaken int
}

func roll(src Source, sides int) int {
	return src.Intn(sides) + 1
}

func modifier(stat int) int {
	return stat / 10
}

func InitiateBattle(src Source, enemy domain.Enemy, p Snapshot) domain.BattleState {
	state := domain.BattleState{
		Enemy:           enemy,
		PlayerHealth:    p.Health,
		PlayerMaxHealth: p.MaxHealth,
		PlayerAttack:    p.Attack,
		PlayerDefense:   p.Defense,
		PlayerSpeed:     p.Speed,
		EnemyHealth:     enemy.Health,
		EnemyMaxHealth:  enemy.Health,
		Phase:           domain.BattleInitiative,
		Rounds:          make([]domain.BattleRound, 0, 8),
	}

	pRoll := roll(src, 20)
	pMod := modifier(p.Speed)
	eTotal := roll(src, 20) + enemyInitiative

	r := domain.BattleRound{
		Round:    0,
		Actor:    domain.ActorPlayer,
		Action:   "initiative",
		Roll:     pRoll,
		Modifier: pMod,
		Total:    pRoll + pMod,
		TargetAC: eTotal,
	}
	if r.Total >= eTotal {
		state.Phase = domain.BattlePlayerAttack
		r.Hit = true
		r.Description = fmt.Sprintf("You act first against the %s (%d vs %d).", enemy.Name, r.Total, eTotal)
	} else {
		state.Phase = domain.BattleEnemyAttack
		r.Description = fmt.Sprintf("The %s strikes first (%d vs %d).", enemy.Name, eTotal, r.Total)
	}
	state.Rounds = append(state.Rounds, r)
	return state
}

// PlayerAttack rolls d20 + attack modifier against the enemy's armor class.
func PlayerAttack(src Source, s domain.BattleState) domain.BattleState {
	if s.Phase != domain.BattlePlayerAttack {
		return s
	}
	s = s.Clone()
	s.CurrentRound++

	d := roll(src, 20)
	mod := modifier(s.PlayerAttack)
	ac := baseAC + modifier(s.Enemy.Power)
	r := domain.BattleRound{
		Round:    s.CurrentRound,
		Actor:    domain.ActorPlayer,
		Action:   "attack",
		Roll:     d,
		Modifier: mod,
		Total:    d + mod,
		TargetAC: ac,
	}
	r.Hit, r.Critical = hits(d, r.Total, ac)
	if r.Hit {
		r.Damage = s.PlayerAttack/5 + roll(src, 6)
		if r.Critical {
			r.Damage *= 2
		}
		s.EnemyHealth = max(s.EnemyHealth-r.Damage, 0)
	}
	r.Description = describeAttack("You", s.Enemy.Name, r)
	s.Rounds = append(s.Rounds, r)

	if s.EnemyHealth == 0 {
		s.Phase = domain.BattleVictory
	} else {
		s.Phase = domain.BattleEnemyAttack
	}
	return s
}

// PlayerDefend raises the player's armor class for the next enemy attack.
func PlayerDefend(s domain.BattleState) domain.BattleState {
	if s.Phase != domain.BattlePlayerAttack {
		return s
	}
	s = s.Clone()
	s.CurrentRound++
	s.Defending = true
	s.Rounds = append(s.Rounds, domain.BattleRound{
		Round:       s.CurrentRound,
		Actor:       domain.ActorPlayer,
		Action:      "defend",
		Description: fmt.Sprintf("You brace yourself (+%d AC).", defendBonus),
	})
	s.Phase = domain.BattleEnemyAttack
	return s
}

// PlayerUseItem spends the player's turn on an item. Potions heal up to the
// battle's max health; other usable items only narrate.
func PlayerUseItem(s domain.BattleState, item domain.Item) domain.BattleState {
	if s.Phase != domain.BattlePlayerAttack || !item.Usable() {
		return s
	}
	s = s.Clone()
	s.CurrentRound++
	r := domain.BattleRound{
		Round:  s.CurrentRound,
		Actor:  domain.ActorPlayer,
		Action: "use_item",
	}
	switch item.Category {
	case domain.CategoryPotion:
		healed := min(item.Stats, s.PlayerMaxHealth-s.PlayerHealth)
		healed = max(healed, 0)
		s.PlayerHealth += healed
		r.Healed = healed
		r.Description = fmt.Sprintf("You drink the %s and recover %d health.", item.Name, healed)
	default:
		effect := item.Effect
		if effect == "" {
			effect = "nothing obvious"
		}
		r.Description = fmt.Sprintf("You use the %s: %s.", item.Name, effect)
	}
	s.Rounds = append(s.Rounds, r)
	s.Phase = domain.BattleEnemyAttack
	return s
}

// EnemyAttack rolls d20 + power modifier against the player's armor class.
// A pending defend bonus is consumed.
func EnemyAttack(src Source, s domain.BattleState) domain.BattleState {
	if s.Phase != domain.BattleEnemyAttack {
		return s
	}
	s = s.Clone()
	s.CurrentRound++

	ac := baseAC + modifier(s.PlayerDefense)
	if s.Defending {
		ac += defendBonus
		s.Defending = false
	}
	d := roll(src, 20)
	mod := modifier(s.Enemy.Power)
	r := domain.BattleRound{
		Round:    s.CurrentRound,
		Actor:    domain.ActorEnemy,
		Action:   "attack",
		Roll:     d,
		Modifier: mod,
		Total:    d + mod,
		TargetAC: ac,
	}
	r.Hit, r.Critical = hits(d, r.Total, ac)
	if r.Hit {
		r.Damage = s.Enemy.Power/5 + roll(src, 6)
		if r.Critical {
			r.Damage *= 2
		}
		s.PlayerHealth = max(s.PlayerHealth-r.Damage, 0)
	}
	r.Description = describeAttack("The "+s.Enemy.Name, "you", r)
	s.Rounds = append(s.Rounds, r)

	if s.PlayerHealth == 0 {
		s.Phase = domain.BattleDefeat
	} else {
		s.Phase = domain.BattlePlayerAttack
	}
	return s
}

// Resolve summarises a finished battle. DamageTaken is the total damage dealt
// by the enemy across all rounds.
func Resolve(s domain.BattleState) Outcome {
	out := Outcome{PlayerWon: s.Phase == domain.BattleVictory}
	for _, r := range s.Rounds {
		if r.Actor == domain.ActorEnemy {
			out.DamageTaken += r.Damage
		}
	}
	return out
}

// hits applies the natural 1 and natural 20 rules before comparing to AC.
func hits(natural, total, ac int) (hit, critical bool) {
	switch natural {
	case 1:
		return false, false
	case 20:
		return true, true
	}
	return total >= ac, false
}

func describeAttack(attacker, target string, r domain.BattleRound) string {
	switch {
	case r.Roll == 1:
		return fmt.Sprintf("%s rolls a natural 1 and misses %s.", attacker, target)
	case r.Critical:
		return fmt.Sprintf("Critical! %s hits %s for %d damage.", attacker, target, r.Damage)
	case r.Hit:
		return fmt.Sprintf("%s hits %s for %d damage (%d vs AC %d).", attacker, target, r.Damage, r.Total, r.TargetAC)
	default:
		return fmt.Sprintf("%s misses %s (%d vs AC %d).", attacker, target, r.Total, r.TargetAC)
	}
}
