package authcore

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/debtflow/authcore/kv"
	"github.com/debtflow/authcore/password"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testEmail = "a@test.com"
	testIP    = "1.2.3.4"
	testPass  = "correct-horse"
)

type fakeUsers struct {
	users map[string]UserRecord
	err   error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (UserRecord, error) {
	if f.err != nil {
		return UserRecord{}, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

// plainHasher keeps the login tests fast; Argon2 is covered in package password.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "plain:" + plain, nil }

func (plainHasher) Compare(plain, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "plain:") {
		return false, errors.New("unknown hash format")
	}
	return hash == "plain:"+plain, nil
}

// countingHasher records which hashes Compare was asked to check.
type countingHasher struct {
	plainHasher
	compares atomic.Int64
	last     atomic.Value
}

func (h *countingHasher) Compare(plain, hash string) (bool, error) {
	h.compares.Add(1)
	h.last.Store(hash)
	return h.plainHasher.Compare(plain, hash)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Access.PrivateKey = []byte(strings.Repeat("a", 32))
	cfg.JWT.Refresh.PrivateKey = []byte(strings.Repeat("r", 32))
	return cfg
}

func testUsers() *fakeUsers {
	return &fakeUsers{users: map[string]UserRecord{
		testEmail: {ID: "u-1", Email: testEmail, Name: "Ana", PasswordHash: "plain:" + testPass},
	}}
}

type serviceOpts struct {
	cfg     *Config
	users   UserProvider
	metrics bool
	sink    AuditSink
	hasher  password.Hasher
}

func newServiceTest(t *testing.T, opts serviceOpts) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if opts.cfg != nil {
		cfg = *opts.cfg
	}
	users := opts.users
	if users == nil {
		users = testUsers()
	}
	var hasher password.Hasher = plainHasher{}
	if opts.hasher != nil {
		hasher = opts.hasher
	}

	b := New().
		WithConfig(cfg).
		WithStore(kv.NewRedis(rdb, kv.WithTimeout(time.Second))).
		WithUserProvider(users).
		WithPasswordHasher(hasher).
		WithMetricsEnabled(opts.metrics).
		WithLatencyHistograms(opts.metrics)
	if opts.sink != nil {
		b = b.WithAuditSink(opts.sink)
	}
	svc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return svc, mr
}

func failKeyFor(email, ip string) string  { return "login:fail:" + email + ":" + ip }
func blockKeyFor(email, ip string) string { return "login:block:" + email + ":" + ip }

func TestLoginCreatesSessionAndAuthorizes(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.False(t, tokens.Reused)

	require.True(t, mr.Exists("session:"+tokens.SessionID))
	ptr, err := mr.Get("user_session:u-1")
	require.NoError(t, err)
	require.Equal(t, tokens.SessionID, ptr)

	p, err := svc.AuthorizeRequest(ctx, tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", p.ID)
	require.Equal(t, testEmail, p.Email)
	require.Equal(t, "Ana", p.Name)
	require.Equal(t, tokens.SessionID, p.SessionID)
}

func TestSecondLoginReusesSession(t *testing.T) {
	svc, _ := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	first, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	second, err := svc.Login(ctx, testEmail, testPass, "5.6.7.8")
	require.NoError(t, err)

	require.True(t, second.Reused)
	require.Equal(t, first.SessionID, second.SessionID)

	// Both access tokens stay valid against the shared session.
	_, err = svc.AuthorizeRequest(ctx, first.AccessToken)
	require.NoError(t, err)
	_, err = svc.AuthorizeRequest(ctx, second.AccessToken)
	require.NoError(t, err)
}

func TestThreeFailuresBlockFourthAttempt(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Login(ctx, testEmail, "wrong", testIP)
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i+1)
	}
	require.True(t, mr.Exists(blockKeyFor(testEmail, testIP)))

	_, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.ErrorIs(t, err, ErrAccountBlocked)
	var blocked *AccountBlockedError
	require.True(t, errors.As(err, &blocked))
	require.Equal(t, int64(900), blocked.RetryAfterSeconds())
	require.Equal(t, CodeAccountBlocked, Code(err))

	// The blocked attempt is not counted.
	count, err := mr.Get(failKeyFor(testEmail, testIP))
	require.NoError(t, err)
	require.Equal(t, "3", count)
}

func TestBlockIsScopedToTheClientIP(t *testing.T) {
	svc, _ := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, testEmail, "wrong", testIP)
	}

	_, err := svc.Login(ctx, testEmail, testPass, "9.9.9.9")
	require.NoError(t, err)
}

func TestBlockExpiresAfterLockout(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Login(ctx, testEmail, "wrong", testIP)
	}
	_, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.ErrorIs(t, err, ErrAccountBlocked)

	mr.FastForward(15*time.Minute + time.Second)

	_, err = svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
}

func TestUnknownEmailCountsAsFailure(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	_, err := svc.Login(ctx, "ghost@test.com", "whatever", testIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.NotErrorIs(t, err, ErrUserNotFound)

	count, err := mr.Get(failKeyFor("ghost@test.com", testIP))
	require.NoError(t, err)
	require.Equal(t, "1", count)

	for i := 0; i < 2; i++ {
		_, _ = svc.Login(ctx, "ghost@test.com", "whatever", testIP)
	}
	_, err = svc.Login(ctx, "ghost@test.com", "whatever", testIP)
	require.ErrorIs(t, err, ErrAccountBlocked)
}

func TestUnknownEmailStillComparesPassword(t *testing.T) {
	h := &countingHasher{}
	svc, _ := newServiceTest(t, serviceOpts{hasher: h})
	ctx := context.Background()

	_, err := svc.Login(ctx, testEmail, "wrong", testIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, int64(1), h.compares.Load())

	_, err = svc.Login(ctx, "ghost@test.com", "whatever", testIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Equal(t, int64(2), h.compares.Load())
	require.Equal(t, "plain:authcore-unknown-user-password", h.last.Load())

	// The dummy hash never authenticates anyone.
	_, err = svc.Login(ctx, "ghost@test.com", "authcore-unknown-user-password", "5.6.7.8")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSuccessResetsCounterOnly(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, testEmail, "wrong", testIP)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	require.False(t, mr.Exists(failKeyFor(testEmail, testIP)))

	// The counter starts over: two more failures do not block.
	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, testEmail, "wrong", testIP)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.False(t, mr.Exists(blockKeyFor(testEmail, testIP)))
}

func TestLoginNormalisesEmail(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	_, err := svc.Login(ctx, "  A@Test.COM ", "wrong", testIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.True(t, mr.Exists(failKeyFor(testEmail, testIP)))

	_, err = svc.Login(ctx, "A@TEST.com", testPass, testIP)
	require.NoError(t, err)
}

func TestRefreshAccessToken(t *testing.T) {
	svc, _ := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)

	access, err := svc.RefreshAccessToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	p, err := svc.AuthorizeRequest(ctx, access)
	require.NoError(t, err)
	require.Equal(t, tokens.SessionID, p.SessionID)

	_, err = svc.RefreshAccessToken(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.Equal(t, CodeInvalidRefreshToken, Code(err))

	// An access token is not a refresh token.
	_, err = svc.RefreshAccessToken(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, svc.Revoke(ctx, tokens.SessionID))
	_, err = svc.RefreshAccessToken(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Equal(t, CodeSessionExpired, Code(err))
}

func TestAuthorizeRequest(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	_, err := svc.AuthorizeRequest(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.AuthorizeRequest(ctx, "garbage")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, CodeUnauthorized, Code(err))

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)

	// Refresh tokens never authorize requests.
	_, err = svc.AuthorizeRequest(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)

	// The session window elapses while the access token is still valid.
	mr.FastForward(24*time.Hour + time.Second)
	_, err = svc.AuthorizeRequest(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRevokeStopsAuthorizationImmediately(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, tokens.SessionID))
	require.False(t, mr.Exists("session:"+tokens.SessionID))
	require.False(t, mr.Exists("user_session:u-1"))

	_, err = svc.AuthorizeRequest(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	// Idempotent.
	require.NoError(t, svc.Revoke(ctx, tokens.SessionID))
	require.NoError(t, svc.Revoke(ctx, "never-existed"))

	next, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	require.False(t, next.Reused)
	require.NotEqual(t, tokens.SessionID, next.SessionID)
}

func TestLogout(t *testing.T) {
	svc, _ := newServiceTest(t, serviceOpts{})
	ctx := context.Background()

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Logout(ctx, "garbage"), ErrUnauthorized)
	require.ErrorIs(t, svc.Logout(ctx, tokens.RefreshToken), ErrUnauthorized)

	require.NoError(t, svc.Logout(ctx, tokens.AccessToken))
	_, err = svc.AuthorizeRequest(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	require.NoError(t, svc.Logout(ctx, tokens.AccessToken))
}

func TestStoreOutageIsInternalError(t *testing.T) {
	svc, mr := newServiceTest(t, serviceOpts{metrics: true})
	ctx := context.Background()

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)

	mr.Close()

	_, err = svc.Login(ctx, testEmail, testPass, testIP)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, kv.ErrUnavailable)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
	require.NotErrorIs(t, err, ErrAccountBlocked)
	require.Equal(t, CodeInternal, Code(err))

	_, err = svc.AuthorizeRequest(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotErrorIs(t, err, ErrSessionExpired)

	_, err = svc.RefreshAccessToken(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.Ping(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	require.GreaterOrEqual(t, svc.MetricsSnapshot().Counters[MetricStoreError], uint64(4))
}

func TestUserProviderFailureIsInternal(t *testing.T) {
	boom := errors.New("db down")
	svc, mr := newServiceTest(t, serviceOpts{users: &fakeUsers{err: boom}})

	_, err := svc.Login(context.Background(), testEmail, testPass, testIP)
	require.ErrorIs(t, err, boom)
	require.Equal(t, CodeInternal, Code(err))
	require.False(t, mr.Exists(failKeyFor(testEmail, testIP)))
}

func TestLoginWithArgon2Hasher(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	users := &fakeUsers{users: map[string]UserRecord{}}
	svc, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserProvider(users).
		Build()
	require.NoError(t, err)
	defer svc.Close()

	hash, err := svc.hasher.Hash(testPass)
	require.NoError(t, err)
	users.users[testEmail] = UserRecord{ID: "u-1", Email: testEmail, PasswordHash: hash}

	_, err = svc.Login(context.Background(), testEmail, testPass, testIP)
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), testEmail, "nope", testIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMetricsCountFlows(t *testing.T) {
	svc, _ := newServiceTest(t, serviceOpts{metrics: true})
	ctx := context.Background()

	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	_, err = svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, _ = svc.Login(ctx, testEmail, "wrong", "7.7.7.7")
	}
	_, _ = svc.AuthorizeRequest(ctx, tokens.AccessToken)
	_, _ = svc.AuthorizeRequest(ctx, "")
	_, _ = svc.RefreshAccessToken(ctx, tokens.RefreshToken)
	require.NoError(t, svc.Logout(ctx, tokens.AccessToken))

	snap := svc.MetricsSnapshot()
	require.Equal(t, uint64(2), snap.Counters[MetricLoginSuccess])
	require.Equal(t, uint64(1), snap.Counters[MetricSessionCreated])
	require.Equal(t, uint64(1), snap.Counters[MetricSessionReused])
	require.Equal(t, uint64(3), snap.Counters[MetricLoginFailure])
	require.Equal(t, uint64(1), snap.Counters[MetricLockoutTriggered])
	require.Equal(t, uint64(1), snap.Counters[MetricLoginBlocked])
	require.Equal(t, uint64(1), snap.Counters[MetricAuthorizeSuccess])
	require.Equal(t, uint64(1), snap.Counters[MetricAuthorizeUnauthorized])
	require.Equal(t, uint64(1), snap.Counters[MetricRefreshSuccess])
	require.Equal(t, uint64(1), snap.Counters[MetricLogout])

	var observed uint64
	for _, n := range snap.Histograms[MetricAuthorizeLatency] {
		observed += n
	}
	require.Equal(t, uint64(2), observed)
}

func TestAuditEventsCarryClientIP(t *testing.T) {
	sink := NewChannelSink(16)
	svc, _ := newServiceTest(t, serviceOpts{sink: sink})
	ctx := WithUserAgent(context.Background(), "curl/8")

	_, err := svc.Login(ctx, testEmail, "wrong", testIP)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	tokens, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.NoError(t, err)
	svc.Close()

	failure := <-sink.Events()
	require.Equal(t, EventLoginFailure, failure.EventType)
	require.False(t, failure.Success)
	require.Equal(t, testIP, failure.IP)
	require.Equal(t, CodeInvalidCredentials, failure.Error)
	require.Equal(t, "1", failure.Metadata["attempts"])
	require.Equal(t, "curl/8", failure.Metadata["user_agent"])

	success := <-sink.Events()
	require.Equal(t, EventLoginSuccess, success.EventType)
	require.True(t, success.Success)
	require.Equal(t, "u-1", success.UserID)
	require.Equal(t, tokens.SessionID, success.SessionID)
	require.Empty(t, success.Error)
}

func TestPing(t *testing.T) {
	svc, _ := newServiceTest(t, serviceOpts{})
	d, err := svc.Ping(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, d, time.Duration(0))
}

func TestNilServiceIsNotReady(t *testing.T) {
	var svc *Service
	ctx := context.Background()

	_, err := svc.Login(ctx, testEmail, testPass, testIP)
	require.ErrorIs(t, err, ErrEngineNotReady)
	_, err = svc.AuthorizeRequest(ctx, "x")
	require.ErrorIs(t, err, ErrEngineNotReady)
	require.ErrorIs(t, svc.Revoke(ctx, "x"), ErrEngineNotReady)
	require.Empty(t, svc.MetricsSnapshot().Counters)
	require.Zero(t, svc.AuditDropped())
	svc.Close()
}
