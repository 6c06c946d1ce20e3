package gameserver

import (
	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/storage"
)

// Empty is the request or reply of calls that carry no data.
type Empty struct{}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AccountReply struct {
	Username string `json:"username"`
}

type LoginReply struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type HeroList struct {
	Heroes []arena.HeroView `json:"heroes"`
}

type EncounterList struct {
	Encounters []arena.EncounterView `json:"encounters"`
}

// ListRequest bounds Leaderboard and History; zero means ten.
type ListRequest struct {
	Limit int `json:"limit"`
}

type LeaderboardReply struct {
	Standings []storage.Standing `json:"standings"`
}

type HistoryReply struct {
	Reports []storage.Report `json:"reports"`
}

type StartBattleRequest struct {
	Hero      string `json:"hero"`
	Encounter string `json:"encounter"`
	Realtime  bool   `json:"realtime"`
}

type BattleRequest struct {
	BattleID string `json:"battle_id"`
}

type ActRequest struct {
	BattleID string       `json:"battle_id"`
	Action   arena.Action `json:"action"`
}

type LogRequest struct {
	BattleID string `json:"battle_id"`
	Since    uint64 `json:"since"`
}

type LogReply struct {
	Events []combat.Event `json:"events"`
}

// WatchEvent is one frame of the Watch stream: an Update while the battle
// runs, then a single Outcome.
type WatchEvent struct {
	Update  *combat.Update  `json:"update,omitempty"`
	Outcome *combat.Outcome `json:"outcome,omitempty"`
}
