package store

import (
	"fmt"

	"github.com/google/uuid"
)

// Key builders. Everything for one match lives under lobbies:{id}: so the
// whole match footprint can be reasoned about (and cleared) as a unit.

func lobbyInfoKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:info", lobbyID)
}

func lobbyPlayersKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:players", lobbyID)
}

func lobbyPlayerKey(lobbyID, playerID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:player:%s", lobbyID, playerID)
}

func connectedPlayersKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:connected_players", lobbyID)
}

func missedMsgsKey(lobbyID, playerID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:missed_msgs:%s", lobbyID, playerID)
}

func startedKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:started", lobbyID)
}

func currentTurnKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:current_turn", lobbyID)
}

func ruleStateKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:rule_state", lobbyID)
}

func activePlayersKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:active_players", lobbyID)
}

func eliminatedKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:eliminated", lobbyID)
}

func countdownKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:countdown", lobbyID)
}

func usedWordsKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:used_words", lobbyID)
}

func boardKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:board", lobbyID)
}

func revealedKey(lobbyID uuid.UUID) string {
	return fmt.Sprintf("lobbies:%s:game:revealed", lobbyID)
}

func singleGameKey(userID uuid.UUID) string {
	return fmt.Sprintf("games:sweeper:single:%s", userID)
}

func singleCountdownKey(userID uuid.UUID) string {
	return fmt.Sprintf("games:sweeper:single:%s:countdown", userID)
}

const dictionaryKey = "words:dictionary"
