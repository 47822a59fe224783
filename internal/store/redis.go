package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stackswars/backend/internal/models"
)

// RedisStore implements Store on a single Redis instance.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) LobbyInfo(ctx context.Context, lobbyID uuid.UUID) (*models.LobbyInfo, error) {
	h, err := s.rdb.HGetAll(ctx, lobbyInfoKey(lobbyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("lobby info %s: %w", lobbyID, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	return models.LobbyInfoFromRedisHash(h)
}

func (s *RedisStore) SaveLobbyInfo(ctx context.Context, info *models.LobbyInfo) error {
	if err := s.rdb.HSet(ctx, lobbyInfoKey(info.ID), info.ToRedisHash()).Err(); err != nil {
		return fmt.Errorf("save lobby info %s: %w", info.ID, err)
	}
	return nil
}

func (s *RedisStore) SetLobbyState(ctx context.Context, lobbyID uuid.UUID, state models.LobbyState) error {
	if err := s.rdb.HSet(ctx, lobbyInfoKey(lobbyID), "state", string(state)).Err(); err != nil {
		return fmt.Errorf("set lobby state %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) LobbyPlayers(ctx context.Context, lobbyID uuid.UUID) ([]models.Player, error) {
	ids, err := s.memberIDs(ctx, lobbyPlayersKey(lobbyID))
	if err != nil {
		return nil, err
	}
	players := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		p, err := s.Player(ctx, lobbyID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		players = append(players, *p)
	}
	return players, nil
}

func (s *RedisStore) Player(ctx context.Context, lobbyID, playerID uuid.UUID) (*models.Player, error) {
	h, err := s.rdb.HGetAll(ctx, lobbyPlayerKey(lobbyID, playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("player %s in %s: %w", playerID, lobbyID, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	return models.PlayerFromRedisHash(h)
}

func (s *RedisStore) SavePlayer(ctx context.Context, lobbyID uuid.UUID, p *models.Player) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, lobbyPlayerKey(lobbyID, p.ID), p.ToRedisHash())
	pipe.SAdd(ctx, lobbyPlayersKey(lobbyID), p.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save player %s in %s: %w", p.ID, lobbyID, err)
	}
	return nil
}

func (s *RedisStore) AddConnected(ctx context.Context, lobbyID, playerID uuid.UUID) error {
	if err := s.rdb.SAdd(ctx, connectedPlayersKey(lobbyID), playerID.String()).Err(); err != nil {
		return fmt.Errorf("add connected %s: %w", playerID, err)
	}
	return nil
}

func (s *RedisStore) RemoveConnected(ctx context.Context, lobbyID, playerID uuid.UUID) error {
	if err := s.rdb.SRem(ctx, connectedPlayersKey(lobbyID), playerID.String()).Err(); err != nil {
		return fmt.Errorf("remove connected %s: %w", playerID, err)
	}
	return nil
}

func (s *RedisStore) ConnectedPlayers(ctx context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error) {
	return s.memberIDs(ctx, connectedPlayersKey(lobbyID))
}

func (s *RedisStore) SetStarted(ctx context.Context, lobbyID uuid.UUID, started bool) error {
	val := "0"
	if started {
		val = "1"
	}
	if err := s.rdb.Set(ctx, startedKey(lobbyID), val, 0).Err(); err != nil {
		return fmt.Errorf("set started %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) Started(ctx context.Context, lobbyID uuid.UUID) (bool, error) {
	val, err := s.rdb.Get(ctx, startedKey(lobbyID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get started %s: %w", lobbyID, err)
	}
	return val == "1", nil
}

func (s *RedisStore) SetCurrentTurn(ctx context.Context, lobbyID, playerID uuid.UUID) error {
	if err := s.rdb.Set(ctx, currentTurnKey(lobbyID), playerID.String(), 0).Err(); err != nil {
		return fmt.Errorf("set current turn %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) CurrentTurn(ctx context.Context, lobbyID uuid.UUID) (uuid.UUID, bool, error) {
	val, err := s.rdb.Get(ctx, currentTurnKey(lobbyID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get current turn %s: %w", lobbyID, err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("parse current turn %s: %w", lobbyID, err)
	}
	return id, true, nil
}

func (s *RedisStore) SetRuleState(ctx context.Context, lobbyID uuid.UUID, rs RuleState) error {
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode rule state: %w", err)
	}
	if err := s.rdb.Set(ctx, ruleStateKey(lobbyID), data, 0).Err(); err != nil {
		return fmt.Errorf("set rule state %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) GetRuleState(ctx context.Context, lobbyID uuid.UUID) (RuleState, bool, error) {
	val, err := s.rdb.Get(ctx, ruleStateKey(lobbyID)).Result()
	if errors.Is(err, redis.Nil) {
		return RuleState{}, false, nil
	}
	if err != nil {
		return RuleState{}, false, fmt.Errorf("get rule state %s: %w", lobbyID, err)
	}
	var rs RuleState
	if err := json.Unmarshal([]byte(val), &rs); err != nil {
		return RuleState{}, false, fmt.Errorf("decode rule state %s: %w", lobbyID, err)
	}
	return rs, true, nil
}

func (s *RedisStore) SetActivePlayers(ctx context.Context, lobbyID uuid.UUID, ids []uuid.UUID) error {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	data, err := json.Marshal(strs)
	if err != nil {
		return fmt.Errorf("encode active players: %w", err)
	}
	if err := s.rdb.Set(ctx, activePlayersKey(lobbyID), data, 0).Err(); err != nil {
		return fmt.Errorf("set active players %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) ActivePlayers(ctx context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error) {
	val, err := s.rdb.Get(ctx, activePlayersKey(lobbyID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active players %s: %w", lobbyID, err)
	}
	var strs []string
	if err := json.Unmarshal([]byte(val), &strs); err != nil {
		return nil, fmt.Errorf("decode active players %s: %w", lobbyID, err)
	}
	return parseIDs(strs)
}

func (s *RedisStore) AppendEliminated(ctx context.Context, lobbyID, playerID uuid.UUID) error {
	if err := s.rdb.RPush(ctx, eliminatedKey(lobbyID), playerID.String()).Err(); err != nil {
		return fmt.Errorf("append eliminated %s: %w", playerID, err)
	}
	return nil
}

func (s *RedisStore) EliminatedPlayers(ctx context.Context, lobbyID uuid.UUID) ([]uuid.UUID, error) {
	strs, err := s.rdb.LRange(ctx, eliminatedKey(lobbyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("eliminated players %s: %w", lobbyID, err)
	}
	return parseIDs(strs)
}

func (s *RedisStore) SetCountdown(ctx context.Context, lobbyID uuid.UUID, secs int) error {
	if err := s.rdb.Set(ctx, countdownKey(lobbyID), secs, 0).Err(); err != nil {
		return fmt.Errorf("set countdown %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) ClearMatchState(ctx context.Context, lobbyID uuid.UUID) error {
	keys := []string{
		startedKey(lobbyID),
		currentTurnKey(lobbyID),
		ruleStateKey(lobbyID),
		activePlayersKey(lobbyID),
		eliminatedKey(lobbyID),
		countdownKey(lobbyID),
		usedWordsKey(lobbyID),
		boardKey(lobbyID),
		revealedKey(lobbyID),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear match state %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) SeedDictionary(ctx context.Context, words []string) error {
	const batch = 5000
	for start := 0; start < len(words); start += batch {
		end := start + batch
		if end > len(words) {
			end = len(words)
		}
		members := make([]interface{}, 0, end-start)
		for _, w := range words[start:end] {
			members = append(members, w)
		}
		if err := s.rdb.SAdd(ctx, dictionaryKey, members...).Err(); err != nil {
			return fmt.Errorf("seed dictionary: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) IsDictionaryWord(ctx context.Context, word string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, dictionaryKey, word).Result()
	if err != nil {
		return false, fmt.Errorf("dictionary lookup %q: %w", word, err)
	}
	return ok, nil
}

func (s *RedisStore) AddUsedWord(ctx context.Context, lobbyID uuid.UUID, word string) error {
	if err := s.rdb.SAdd(ctx, usedWordsKey(lobbyID), word).Err(); err != nil {
		return fmt.Errorf("add used word %q: %w", word, err)
	}
	return nil
}

func (s *RedisStore) IsWordUsed(ctx context.Context, lobbyID uuid.UUID, word string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, usedWordsKey(lobbyID), word).Result()
	if err != nil {
		return false, fmt.Errorf("used word lookup %q: %w", word, err)
	}
	return ok, nil
}

func (s *RedisStore) SaveBoard(ctx context.Context, lobbyID uuid.UUID, b *models.Board) error {
	data, err := models.EncodeBoard(b)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, boardKey(lobbyID), data, 0).Err(); err != nil {
		return fmt.Errorf("save board %s: %w", lobbyID, err)
	}
	return nil
}

func (s *RedisStore) Board(ctx context.Context, lobbyID uuid.UUID) (*models.Board, error) {
	val, err := s.rdb.Get(ctx, boardKey(lobbyID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", lobbyID, err)
	}
	return models.DecodeBoard(val)
}

func (s *RedisStore) AddRevealed(ctx context.Context, lobbyID uuid.UUID, x, y int) error {
	member := fmt.Sprintf("%d:%d", x, y)
	if err := s.rdb.SAdd(ctx, revealedKey(lobbyID), member).Err(); err != nil {
		return fmt.Errorf("add revealed %s: %w", member, err)
	}
	return nil
}

func (s *RedisStore) RevealedCells(ctx context.Context, lobbyID uuid.UUID) ([]models.CellPosition, error) {
	members, err := s.rdb.SMembers(ctx, revealedKey(lobbyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("revealed cells %s: %w", lobbyID, err)
	}
	cells := make([]models.CellPosition, 0, len(members))
	for _, m := range members {
		var pos models.CellPosition
		if _, err := fmt.Sscanf(m, "%d:%d", &pos.X, &pos.Y); err != nil {
			return nil, fmt.Errorf("bad revealed member %q: %w", m, err)
		}
		cells = append(cells, pos)
	}
	return cells, nil
}

func (s *RedisStore) SetSingleGame(ctx context.Context, userID uuid.UUID, payload string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, singleGameKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set single game %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) SingleGame(ctx context.Context, userID uuid.UUID) (string, error) {
	val, err := s.rdb.Get(ctx, singleGameKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get single game %s: %w", userID, err)
	}
	return val, nil
}

func (s *RedisStore) DeleteSingleGame(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, singleGameKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete single game %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) SetSingleCountdown(ctx context.Context, userID uuid.UUID, secs uint64) error {
	if err := s.rdb.Set(ctx, singleCountdownKey(userID), secs, 0).Err(); err != nil {
		return fmt.Errorf("set single countdown %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) SingleCountdown(ctx context.Context, userID uuid.UUID) (uint64, bool, error) {
	val, err := s.rdb.Get(ctx, singleCountdownKey(userID)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get single countdown %s: %w", userID, err)
	}
	return val, true, nil
}

func (s *RedisStore) ClearSingleCountdown(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, singleCountdownKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear single countdown %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) QueueMessage(ctx context.Context, lobbyID, playerID uuid.UUID, payload []byte, ttl time.Duration) error {
	key := missedMsgsKey(lobbyID, playerID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue message for %s: %w", playerID, err)
	}
	return nil
}

func (s *RedisStore) DrainQueued(ctx context.Context, lobbyID, playerID uuid.UUID) ([][]byte, error) {
	key := missedMsgsKey(lobbyID, playerID)
	vals, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("drain queued for %s: %w", playerID, err)
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("clear queued for %s: %w", playerID, err)
	}
	// LPUSH stores newest first; reverse so the caller replays in arrival
	// order.
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[len(vals)-1-i] = []byte(v)
	}
	return out, nil
}

func (s *RedisStore) memberIDs(ctx context.Context, key string) ([]uuid.UUID, error) {
	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", key, err)
	}
	return parseIDs(members)
}

func parseIDs(strs []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var _ Store = (*RedisStore)(nil)
