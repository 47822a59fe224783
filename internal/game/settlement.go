package game

import (
	"math"

	"github.com/google/uuid"

	"github.com/stackswars/backend/internal/models"
)

// Prize returns the payout for a finishing position, or nil when the lobby
// has no pool. Two-player lobbies pay the winner a larger share since there
// is no third place.
func Prize(info *models.LobbyInfo, connectedPlayers, rank int) *float64 {
	if !info.HasPool() {
		return nil
	}
	total := info.PoolTotal(connectedPlayers)
	if total <= 0 {
		return nil
	}

	var prize float64
	switch rank {
	case 1:
		if connectedPlayers == 2 {
			prize = total * 70.0 / 100.0
		} else {
			prize = total * 50.0 / 100.0
		}
	case 2:
		prize = total * 30.0 / 100.0
	case 3:
		prize = total * 20.0 / 100.0
	default:
		prize = 0
	}
	return &prize
}

// WarsPoints scores a finishing position. Base points scale with how many
// players were beaten; pool play adds a bonus, and the sponsor of a
// pre-funded lobby gets a kickback. Capped at 50.
func WarsPoints(info *models.LobbyInfo, connectedPlayers, rank int, prize *float64, playerID uuid.UUID) float64 {
	total := float64((connectedPlayers - rank + 1) * 2)

	if prize != nil && info.EntryAmount != 0 {
		total += *prize/float64(connectedPlayers) + info.EntryAmount/5.0
	}

	if info.EntryAmount == 0 && info.CurrentAmount > 0 && playerID == info.CreatorID {
		total += 2.5 * float64(connectedPlayers)
	}

	return math.Min(total, 50.0)
}

// TargetMultiplier is the full-clear cashout multiplier for an n-by-n board
// with mine density d. A hard 5x5 board anchors at 2x.
func TargetMultiplier(n int, d float64) float64 {
	const (
		base        = 2.0
		beta        = 0.1
		hardDensity = 0.4
		gamma       = 0.8
	)
	sizeScale := 1.0 + beta*(float64(n)-5.0)
	risk := math.Pow(d/hardDensity, gamma)
	return base * sizeScale * risk
}

// CashoutMultiplier is the multiplier after r safe reveals, linear from 1
// at zero reveals up to the target at a full clear, floored to 2 decimals.
func CashoutMultiplier(n int, d float64, r int) float64 {
	t := float64(n * n)
	m := math.Round(t * d)
	s := t - m
	c := math.Max(s-1.0, 1.0)

	target := TargetMultiplier(n, d)
	p := (target - 1.0) / c

	multiplier := 1.0 + p*float64(r)
	return math.Floor(multiplier*100.0) / 100.0
}
