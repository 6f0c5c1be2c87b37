package game

type BattlePhase string

const (
	BattleInitiative   BattlePhase = "initiative"
	BattlePlayerAttack BattlePhase = "player_attack"
	BattleEnemyAttack  BattlePhase = "enemy_attack"
	BattleVictory      BattlePhase = "victory"
	BattleDefeat       BattlePhase = "defeat"
)

func (p BattlePhase) Terminal() bool {
	return p == BattleVictory || p == BattleDefeat
}

type Actor string

const (
	ActorPlayer Actor = "player"
	ActorEnemy  Actor = "enemy"
)

type BattleRound struct {
	Round       int    `json:"round"`
	Actor       Actor  `json:"actor"`
	Action      string `json:"action"`
	Roll        int    `json:"roll,omitempty"`
	Modifier    int    `json:"modifier,omitempty"`
	Total       int    `json:"total,omitempty"`
	TargetAC    int    `json:"target_ac,omitempty"`
	Hit         bool   `json:"hit"`
	Critical    bool   `json:"critical"`
	Damage      int    `json:"damage,omitempty"`
	Healed      int    `json:"healed,omitempty"`
	Description string `json:"description"`
}

// BattleState is a snapshot of one fight. The player fields are copied from
// the persistent Player when the battle starts.
type BattleState struct {
	Enemy           Enemy         `json:"enemy"`
	PlayerHealth    int           `json:"player_health"`
	PlayerMaxHealth int           `json:"player_max_health"`
	PlayerAttack    int           `json:"player_attack"`
	PlayerDefense   int           `json:"player_defense"`
	PlayerSpeed     int           `json:"player_speed"`
	EnemyHealth     int           `json:"enemy_health"`
	EnemyMaxHealth  int           `json:"enemy_max_health"`
	Defending       bool          `json:"defending"`
	Rounds          []BattleRound `json:"rounds"`
	CurrentRound    int           `json:"current_round"`
	Phase           BattlePhase   `json:"phase"`
}

func (b BattleState) Clone() BattleState {
	out := b
	out.Rounds = append(make([]BattleRound, 0, len(b.Rounds)+1), b.Rounds...)
	return out
}
