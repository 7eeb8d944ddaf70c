package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedAccountID is the key suffix of the one administrator account this
// subsystem models.
const FixedAccountID = "admin"

var (
	ErrAccountNotFound         = errors.New("account record not found")
	ErrCodeNotFound            = errors.New("active code not found")
	ErrCodeExpired             = errors.New("active code expired")
	ErrCodeMismatch            = errors.New("active code mismatch")
	ErrSessionNotFound         = errors.New("active session not found")
	ErrSessionExpired          = errors.New("active session expired")
	ErrSessionMismatch         = errors.New("active session mismatch")
	ErrAccountRedisUnavailable = errors.New("account redis unavailable")
)

// FailureKind selects which of the two independent failure counters an
// operation increments. The counters must never be conflated: spamming one
// factor must not be able to lock out the other.
type FailureKind int

const (
	FailurePrimary FailureKind = iota
	FailureSecondFactor
)

func (k FailureKind) field() string {
	if k == FailureSecondFactor {
		return "fail_second"
	}
	return "fail_primary"
}

// createAccountLua provisions the account hash only when it does not exist.
var createAccountLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'pin_hash', ARGV[1],
  'sf_enabled', '0',
  'fail_primary', '0',
  'fail_second', '0',
  'locked_until', '0',
  'created_at', ARGV[2])
return 1
`)

// recordFailureLua atomically increments a failure counter and, at the
// threshold, arms the lock and resets the counter in the same step.
// KEYS[1] = account key
// ARGV[1] = counter field
// ARGV[2] = threshold
// ARGV[3] = locked_until unix timestamp to set when the threshold is reached
var recordFailureLua = redis.NewScript(`
local count = redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
if count >= tonumber(ARGV[2]) then
  redis.call('HSET', KEYS[1], 'locked_until', ARGV[3], ARGV[1], '0')
  return {count, 1}
end
return {count, 0}
`)

// consumeCodeLua performs GET -> expiry check -> compare -> DEL atomically.
// A matching code is cleared in the same step (single use); a mismatched code
// is left intact so a typo does not force re-issuance. Expired codes are
// cleared eagerly.
// KEYS[1] = account key
// ARGV[1] = provided code hash (32 bytes)
// ARGV[2] = current unix timestamp
var consumeCodeLua = redis.NewScript(`
local hash = redis.call('HGET', KEYS[1], 'code_hash')
if not hash then
  return {err='not_found'}
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'code_expires') or '0')
if tonumber(ARGV[2]) > expires then
  redis.call('HDEL', KEYS[1], 'code_hash', 'code_expires')
  return {err='expired'}
end
if hash ~= ARGV[1] then
  return {err='mismatch'}
end
redis.call('HDEL', KEYS[1], 'code_hash', 'code_expires')
return hash
`)

// escalateSessionLua replaces the active session with an escalated one only
// if the presented token hash still matches the persisted one and the session
// is unexpired. Expired sessions are cleared on the way out.
// KEYS[1] = account key
// ARGV[1] = presented token hash (32 bytes)
// ARGV[2] = current unix timestamp
// ARGV[3] = replacement token hash (32 bytes)
// ARGV[4] = replacement trust level
// ARGV[5] = replacement expiry unix timestamp
var escalateSessionLua = redis.NewScript(`
local hash = redis.call('HGET', KEYS[1], 'sess_hash')
if not hash then
  return 0
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'sess_expires') or '0')
if expires <= tonumber(ARGV[2]) then
  redis.call('HDEL', KEYS[1], 'sess_hash', 'sess_trust', 'sess_issued', 'sess_expires')
  return 1
end
if hash ~= ARGV[1] then
  return 2
end
redis.call('HSET', KEYS[1],
  'sess_hash', ARGV[3],
  'sess_trust', ARGV[4],
  'sess_issued', ARGV[2],
  'sess_expires', ARGV[5])
return 3
`)

// promotePendingEmailLua activates a bound-but-unconfirmed email address.
// Enablement is deferred to this point so a typo'd address can never lock the
// operator out.
var promotePendingEmailLua = redis.NewScript(`
local pending = redis.call('HGET', KEYS[1], 'sf_pending_email')
if not pending then
  return 0
end
redis.call('HSET', KEYS[1], 'sf_email', pending, 'sf_enabled', '1')
redis.call('HDEL', KEYS[1], 'sf_pending_email')
return 1
`)

var disableSecondFactorLua = redis.NewScript(`
redis.call('HSET', KEYS[1], 'sf_enabled', '0', 'fail_second', '0')
redis.call('HDEL', KEYS[1], 'sf_email', 'sf_pending_email', 'code_hash', 'code_expires')
return 1
`)

var setPINHashLua = redis.NewScript(`
redis.call('HSET', KEYS[1], 'pin_hash', ARGV[1],
  'fail_primary', '0', 'fail_second', '0', 'locked_until', '0')
return 1
`)

const (
	escalateStatusNotFound int64 = 0
	escalateStatusExpired  int64 = 1
	escalateStatusMismatch int64 = 2
	escalateStatusReplaced int64 = 3
)

// AccountRecord is the decoded administrator account hash. Zero-valued
// optional fields mean "absent". All instants are unix seconds, which are
// UTC by construction; no local-time value is ever persisted.
type AccountRecord struct {
	PINHash             string
	SecondFactorEnabled bool
	SecondFactorEmail   string
	PendingEmail        string
	CodeHash            []byte
	CodeExpiresAt       int64
	FailedPrimary       int64
	FailedSecondFactor  int64
	LockedUntil         int64
	LastLoginAt         int64
	SessionHash         []byte
	SessionTrust        uint8
	SessionIssuedAt     int64
	SessionExpiresAt    int64
	CreatedAt           int64
}

// AccountStore owns the administrator account hash in Redis.
type AccountStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewAccountStore(redisClient redis.UniversalClient, prefix string) *AccountStore {
	if prefix == "" {
		prefix = "aa"
	}
	return &AccountStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *AccountStore) key() string {
	return s.prefix + ":account:" + FixedAccountID
}

// GetOrCreate loads the account record, provisioning it with the supplied
// initial PIN hash on first access. Idempotent under concurrency: the create
// step is a single Lua script guarded by EXISTS.
func (s *AccountStore) GetOrCreate(ctx context.Context, initialPINHash string) (*AccountRecord, error) {
	now := time.Now().UTC().Unix()
	if err := createAccountLua.Run(ctx, s.redis,
		[]string{s.key()},
		initialPINHash,
		now,
	).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return s.Get(ctx)
}

// Get is a pure read of the account record.
func (s *AccountStore) Get(ctx context.Context) (*AccountRecord, error) {
	fields, err := s.redis.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrAccountNotFound
	}
	return decodeAccountRecord(fields), nil
}

// SetPINHash replaces the primary-secret hash and clears lockout state.
func (s *AccountStore) SetPINHash(ctx context.Context, pinHash string) error {
	if err := setPINHashLua.Run(ctx, s.redis, []string{s.key()}, pinHash).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// BindPendingEmail stores an address awaiting its first successful code
// verification. It does not enable the second factor.
func (s *AccountStore) BindPendingEmail(ctx context.Context, email string) error {
	if err := s.redis.HSet(ctx, s.key(), "sf_pending_email", email).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// PromotePendingEmail flips the pending address to active and enables the
// second factor. Returns false when no pending address was bound.
func (s *AccountStore) PromotePendingEmail(ctx context.Context) (bool, error) {
	promoted, err := promotePendingEmailLua.Run(ctx, s.redis, []string{s.key()}).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return promoted == 1, nil
}

// DisableSecondFactor clears the second-factor configuration, any active
// code, and the second-factor failure counter in one step.
func (s *AccountStore) DisableSecondFactor(ctx context.Context) error {
	if err := disableSecondFactorLua.Run(ctx, s.redis, []string{s.key()}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// RecordFailure increments one of the independent failure counters. When the
// counter reaches threshold the account lock is armed until lockedUntil and
// the counter resets, all within a single script so racing failures cannot
// each observe a sub-threshold count.
func (s *AccountStore) RecordFailure(
	ctx context.Context,
	kind FailureKind,
	threshold int,
	lockedUntil int64,
) (count int64, locked bool, err error) {
	result, err := recordFailureLua.Run(ctx, s.redis,
		[]string{s.key()},
		kind.field(),
		threshold,
		lockedUntil,
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("%w: unexpected lua result shape", ErrAccountRedisUnavailable)
	}
	return result[0], result[1] == 1, nil
}

// ResetFailures zeroes a single failure counter without touching the other.
func (s *AccountStore) ResetFailures(ctx context.Context, kind FailureKind) error {
	if err := s.redis.HSet(ctx, s.key(), kind.field(), "0").Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// RecordSuccess resets both failure counters and stamps the last successful
// login. The lock field is left alone: locks clear only by time.
func (s *AccountStore) RecordSuccess(ctx context.Context, now int64) error {
	if err := s.redis.HSet(ctx, s.key(),
		"fail_primary", "0",
		"fail_second", "0",
		"last_login", strconv.FormatInt(now, 10),
	).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// SetActiveCode persists a new one-time code digest, superseding any prior
// code in the same write.
func (s *AccountStore) SetActiveCode(ctx context.Context, codeHash [32]byte, expiresAt int64) error {
	if err := s.redis.HSet(ctx, s.key(),
		"code_hash", string(codeHash[:]),
		"code_expires", strconv.FormatInt(expiresAt, 10),
	).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// ConsumeCode atomically verifies and clears the active code. On mismatch the
// code stays intact and ErrCodeMismatch is returned; the caller decides the
// lockout consequence.
func (s *AccountStore) ConsumeCode(ctx context.Context, providedHash [32]byte, now int64) error {
	result, err := consumeCodeLua.Run(ctx, s.redis,
		[]string{s.key()},
		string(providedHash[:]),
		now,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found":
			return ErrCodeNotFound
		case "expired":
			return ErrCodeExpired
		case "mismatch":
			return ErrCodeMismatch
		default:
			return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
		}
	}

	stored, ok := result.(string)
	if !ok {
		return fmt.Errorf("%w: unexpected lua result type", ErrAccountRedisUnavailable)
	}

	// Final constant-time comparison in Go as defense-in-depth
	// (Lua already checked, but Lua string comparison is not constant-time).
	if subtle.ConstantTimeCompare([]byte(stored), providedHash[:]) != 1 {
		return ErrCodeMismatch
	}
	return nil
}

// ReplaceSession installs a new active session, invalidating whatever session
// was current. Exactly one session exists at a time.
func (s *AccountStore) ReplaceSession(
	ctx context.Context,
	tokenHash [32]byte,
	trust uint8,
	issuedAt, expiresAt int64,
) error {
	if err := s.redis.HSet(ctx, s.key(),
		"sess_hash", string(tokenHash[:]),
		"sess_trust", strconv.FormatUint(uint64(trust), 10),
		"sess_issued", strconv.FormatInt(issuedAt, 10),
		"sess_expires", strconv.FormatInt(expiresAt, 10),
	).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

// EscalateSession atomically swaps the active session for an escalated
// replacement, but only when the presented token hash is still the active one
// and unexpired.
func (s *AccountStore) EscalateSession(
	ctx context.Context,
	currentHash, nextHash [32]byte,
	now int64,
	trust uint8,
	expiresAt int64,
) error {
	status, err := escalateSessionLua.Run(ctx, s.redis,
		[]string{s.key()},
		string(currentHash[:]),
		now,
		string(nextHash[:]),
		trust,
		expiresAt,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}

	switch status {
	case escalateStatusReplaced:
		return nil
	case escalateStatusExpired:
		return ErrSessionExpired
	case escalateStatusMismatch:
		return ErrSessionMismatch
	case escalateStatusNotFound:
		return ErrSessionNotFound
	default:
		return fmt.Errorf("%w: unexpected escalate status %d", ErrAccountRedisUnavailable, status)
	}
}

// ClearSession removes the active session. Idempotent.
func (s *AccountStore) ClearSession(ctx context.Context) error {
	if err := s.redis.HDel(ctx, s.key(),
		"sess_hash", "sess_trust", "sess_issued", "sess_expires",
	).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccountRedisUnavailable, err)
	}
	return nil
}

func decodeAccountRecord(fields map[string]string) *AccountRecord {
	record := &AccountRecord{
		PINHash:             fields["pin_hash"],
		SecondFactorEnabled: fields["sf_enabled"] == "1",
		SecondFactorEmail:   fields["sf_email"],
		PendingEmail:        fields["sf_pending_email"],
		CodeExpiresAt:       parseInt(fields["code_expires"]),
		FailedPrimary:       parseInt(fields["fail_primary"]),
		FailedSecondFactor:  parseInt(fields["fail_second"]),
		LockedUntil:         parseInt(fields["locked_until"]),
		LastLoginAt:         parseInt(fields["last_login"]),
		SessionIssuedAt:     parseInt(fields["sess_issued"]),
		SessionExpiresAt:    parseInt(fields["sess_expires"]),
		CreatedAt:           parseInt(fields["created_at"]),
	}
	if raw, ok := fields["code_hash"]; ok {
		record.CodeHash = []byte(raw)
	}
	if raw, ok := fields["sess_hash"]; ok {
		record.SessionHash = []byte(raw)
	}
	if trust := parseInt(fields["sess_trust"]); trust > 0 {
		record.SessionTrust = uint8(trust)
	}
	return record
}

func parseInt(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
