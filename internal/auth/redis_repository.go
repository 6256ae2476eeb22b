package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldOwner     = "owner"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"

	consumeRetries = 4
)

var errTicketExpired = errors.New("ticket expired")

// ticketStore keeps single-use records in Redis hashes, keyed by the hash of
// their opaque id. Each owner (email or account) has at most one live record,
// tracked under an owner index key.
type ticketStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func newTicketStore(client *redis.Client, prefix string) *ticketStore {
	return &ticketStore{client: client, prefix: prefix, now: time.Now}
}

// hashToken keeps raw ids out of Redis keys
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *ticketStore) recordKey(hashedID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, hashedID)
}

func (s *ticketStore) ownerKey(owner string) string {
	return fmt.Sprintf("%s:owner:%s", s.prefix, owner)
}

// saveScript writes the record and points the owner index at it, deleting
// whatever record the index pointed at before.
//
// KEYS[1] record key, KEYS[2] owner key
// ARGV[1] hashed id, ARGV[2] ttl in ms, ARGV[3] record key prefix, ARGV[4..] field/value pairs
const saveScript = `
local previous = redis.call("GET", KEYS[2])
if previous and previous ~= ARGV[1] then
  redis.call("DEL", ARGV[3] .. previous)
end
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 4))
redis.call("PEXPIRE", KEYS[1], ARGV[2])
redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
return 1
`

var saveLua = redis.NewScript(saveScript)

// save stores the record as the owner's only live one. Replacing the previous
// record happens in the same script, so concurrent saves for one owner leave
// exactly one record behind.
func (s *ticketStore) save(ctx context.Context, id, owner string, createdAt, expiresAt time.Time, fields map[string]any) error {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		return fmt.Errorf("%s: expiration time is in the past", s.prefix)
	}

	hashed := hashToken(id)

	args := []any{hashed, ttl.Milliseconds(), s.recordKey("")}
	args = append(args,
		fieldOwner, owner,
		fieldCreatedAt, createdAt.UnixMilli(),
		fieldExpiresAt, expiresAt.UnixMilli(),
	)
	for k, v := range fields {
		args = append(args, k, v)
	}

	err := saveLua.Run(ctx, s.client, []string{s.recordKey(hashed), s.ownerKey(owner)}, args...).Err()
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", s.prefix, err)
	}

	return nil
}

// get returns nil when the record is absent or past its expiry.
func (s *ticketStore) get(ctx context.Context, id string) (map[string]string, error) {
	data, err := s.client.HGetAll(ctx, s.recordKey(hashToken(id))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", s.prefix, err)
	}
	if len(data) == 0 || s.expired(data) {
		return nil, nil
	}
	return data, nil
}

// consume reads and deletes the record in one optimistic transaction, so
// concurrent callers cannot both observe it. Returns nil when absent or expired.
func (s *ticketStore) consume(ctx context.Context, id string) (map[string]string, error) {
	hashed := hashToken(id)
	recordKey := s.recordKey(hashed)

	for i := 0; i < consumeRetries; i++ {
		var consumed map[string]string

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.HGetAll(ctx, recordKey).Result()
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return nil
			}

			ownerKey := s.ownerKey(data[fieldOwner])
			current, err := tx.Get(ctx, ownerKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, recordKey)
				if current == hashed {
					pipe.Del(ctx, ownerKey)
				}
				return nil
			})
			if err != nil {
				return err
			}

			if s.expired(data) {
				return errTicketExpired
			}

			consumed = data
			return nil
		}, recordKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, errTicketExpired) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to consume %s: %w", s.prefix, err)
		}

		return consumed, nil
	}

	// every retry lost the race, so someone else consumed it
	return nil, nil
}

// deleteByOwner removes the owner's live record, reporting whether one existed.
func (s *ticketStore) deleteByOwner(ctx context.Context, owner string) (bool, error) {
	ownerKey := s.ownerKey(owner)

	hashed, err := s.client.Get(ctx, ownerKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", s.prefix, err)
	}

	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, s.recordKey(hashed))
		pipe.Del(ctx, ownerKey)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", s.prefix, err)
	}

	return deleted.Val() > 0, nil
}

func (s *ticketStore) expired(data map[string]string) bool {
	return !s.now().Before(parseMillis(data[fieldExpiresAt]))
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
