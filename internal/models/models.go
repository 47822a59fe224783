package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlayerState tracks lobby readiness before a match starts.
type PlayerState string

const (
	PlayerNotReady PlayerState = "notReady"
	PlayerReady    PlayerState = "ready"
)

// ClaimState tracks whether a player has claimed a won prize.
type ClaimState struct {
	Status string `json:"status"` // "claimed" | "notClaimed"
	TxID   string `json:"txId,omitempty"`
}

func NotClaimed() *ClaimState {
	return &ClaimState{Status: "notClaimed"}
}

func Claimed(txID string) *ClaimState {
	return &ClaimState{Status: "claimed", TxID: txID}
}

func (c *ClaimState) IsClaimed() bool {
	return c != nil && c.Status == "claimed"
}

// Player is one roster entry of a lobby. UsedWords is populated for the
// word-chain game only.
type Player struct {
	ID            uuid.UUID   `json:"id"`
	WalletAddress string      `json:"walletAddress"`
	Username      string      `json:"username,omitempty"`
	State         PlayerState `json:"state"`
	Rank          *int        `json:"rank,omitempty"`
	Prize         *float64    `json:"prize,omitempty"`
	Claim         *ClaimState `json:"claim,omitempty"`
	UsedWords     []string    `json:"usedWords,omitempty"`
}

// DisplayName falls back to the wallet address when no username is set.
func (p *Player) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.WalletAddress
}

// ToRedisHash flattens a player into string fields for an HSET.
func (p *Player) ToRedisHash() map[string]string {
	h := map[string]string{
		"id":             p.ID.String(),
		"wallet_address": p.WalletAddress,
		"state":          string(p.State),
	}
	if p.Username != "" {
		h["username"] = p.Username
	}
	if p.Rank != nil {
		h["rank"] = fmt.Sprintf("%d", *p.Rank)
	}
	if p.Prize != nil {
		h["prize"] = fmt.Sprintf("%g", *p.Prize)
	}
	if p.Claim != nil {
		if b, err := json.Marshal(p.Claim); err == nil {
			h["claim"] = string(b)
		}
	}
	if len(p.UsedWords) > 0 {
		if b, err := json.Marshal(p.UsedWords); err == nil {
			h["used_words"] = string(b)
		}
	}
	return h
}

// PlayerFromRedisHash is the inverse of ToRedisHash.
func PlayerFromRedisHash(h map[string]string) (*Player, error) {
	idStr, ok := h["id"]
	if !ok {
		return nil, fmt.Errorf("missing player id")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid player id: %w", err)
	}

	p := &Player{
		ID:            id,
		WalletAddress: h["wallet_address"],
		Username:      h["username"],
		State:         PlayerState(h["state"]),
	}
	if p.State == "" {
		p.State = PlayerNotReady
	}
	if v, ok := h["rank"]; ok {
		var rank int
		if _, err := fmt.Sscanf(v, "%d", &rank); err == nil {
			p.Rank = &rank
		}
	}
	if v, ok := h["prize"]; ok {
		var prize float64
		if _, err := fmt.Sscanf(v, "%g", &prize); err == nil {
			p.Prize = &prize
		}
	}
	if v, ok := h["claim"]; ok && v != "" {
		var claim ClaimState
		if err := json.Unmarshal([]byte(v), &claim); err == nil {
			p.Claim = &claim
		}
	}
	if v, ok := h["used_words"]; ok && v != "" {
		var words []string
		if err := json.Unmarshal([]byte(v), &words); err == nil {
			p.UsedWords = words
		}
	}
	return p, nil
}

// LobbyState is the lifecycle of a match. Transitions are one-directional
// except Starting -> Waiting (admission failure) and InProgress -> Waiting
// (a ready player reneging mid-countdown).
type LobbyState string

const (
	LobbyWaiting    LobbyState = "waiting"
	LobbyStarting   LobbyState = "starting"
	LobbyInProgress LobbyState = "inProgress"
	LobbyFinished   LobbyState = "finished"
)

func ParseLobbyState(s string) (LobbyState, error) {
	switch LobbyState(s) {
	case LobbyWaiting, LobbyStarting, LobbyInProgress, LobbyFinished:
		return LobbyState(s), nil
	}
	return "", fmt.Errorf("unknown lobby state %q", s)
}

// GameKind selects the engine driving a lobby.
type GameKind string

const (
	GameLexiWars GameKind = "lexiWars"
	GameSweeper  GameKind = "stacksSweeper"
)

// LobbyInfo is the durable descriptor of a match.
type LobbyInfo struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	CreatorID uuid.UUID  `json:"creatorId"`
	State     LobbyState `json:"state"`
	Game      GameKind   `json:"game"`
	CreatedAt time.Time  `json:"createdAt"`

	// Prize pool descriptor. A lobby without a contract address has no pool.
	ContractAddress string  `json:"contractAddress,omitempty"`
	EntryAmount     float64 `json:"entryAmount,omitempty"`
	CurrentAmount   float64 `json:"currentAmount,omitempty"`

	// Grid-reveal board configuration.
	BoardSize int     `json:"boardSize,omitempty"`
	MineRisk  float64 `json:"mineRisk,omitempty"`
}

// HasPool reports whether the lobby settles prizes at all.
func (l *LobbyInfo) HasPool() bool {
	return l.ContractAddress != ""
}

// Sponsored reports whether the pool is pre-funded by the creator rather
// than built from entry fees.
func (l *LobbyInfo) Sponsored() bool {
	return l.HasPool() && l.EntryAmount == 0 && l.CurrentAmount > 0
}

// PoolTotal computes the prize pool given how many players actually joined.
func (l *LobbyInfo) PoolTotal(connectedPlayers int) float64 {
	if !l.HasPool() {
		return 0
	}
	if l.EntryAmount == 0 {
		return l.CurrentAmount
	}
	return l.EntryAmount * float64(connectedPlayers)
}

// ToRedisHash flattens lobby info into string fields for an HSET.
func (l *LobbyInfo) ToRedisHash() map[string]string {
	h := map[string]string{
		"id":         l.ID.String(),
		"name":       l.Name,
		"creator_id": l.CreatorID.String(),
		"state":      string(l.State),
		"game":       string(l.Game),
		"created_at": l.CreatedAt.Format(time.RFC3339),
	}
	if l.ContractAddress != "" {
		h["contract_address"] = l.ContractAddress
	}
	if l.EntryAmount != 0 {
		h["entry_amount"] = fmt.Sprintf("%g", l.EntryAmount)
	}
	if l.CurrentAmount != 0 {
		h["current_amount"] = fmt.Sprintf("%g", l.CurrentAmount)
	}
	if l.BoardSize != 0 {
		h["board_size"] = fmt.Sprintf("%d", l.BoardSize)
	}
	if l.MineRisk != 0 {
		h["mine_risk"] = fmt.Sprintf("%g", l.MineRisk)
	}
	return h
}

// LobbyInfoFromRedisHash is the inverse of ToRedisHash.
func LobbyInfoFromRedisHash(h map[string]string) (*LobbyInfo, error) {
	id, err := uuid.Parse(h["id"])
	if err != nil {
		return nil, fmt.Errorf("invalid lobby id: %w", err)
	}
	creatorID, err := uuid.Parse(h["creator_id"])
	if err != nil {
		return nil, fmt.Errorf("invalid creator id: %w", err)
	}
	state, err := ParseLobbyState(h["state"])
	if err != nil {
		return nil, err
	}

	l := &LobbyInfo{
		ID:        id,
		Name:      h["name"],
		CreatorID: creatorID,
		State:     state,
		Game:      GameKind(h["game"]),
	}
	if v, ok := h["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			l.CreatedAt = t
		}
	}
	l.ContractAddress = h["contract_address"]
	if v, ok := h["entry_amount"]; ok {
		fmt.Sscanf(v, "%g", &l.EntryAmount)
	}
	if v, ok := h["current_amount"]; ok {
		fmt.Sscanf(v, "%g", &l.CurrentAmount)
	}
	if v, ok := h["board_size"]; ok {
		fmt.Sscanf(v, "%d", &l.BoardSize)
	}
	if v, ok := h["mine_risk"]; ok {
		fmt.Sscanf(v, "%g", &l.MineRisk)
	}
	return l, nil
}

// PlayerStanding is one row of a final-standing broadcast.
type PlayerStanding struct {
	Player Player `json:"player"`
	Rank   int    `json:"rank"`
}
