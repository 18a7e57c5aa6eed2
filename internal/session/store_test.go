package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usfbank/surveyweb/internal/session"
)

type draft struct {
	Selected string           `json:"selected"`
	Drafts   map[int64]string `json:"drafts"`
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s, _ := makeStore(t)

	id, err := s.NewID()
	require.NoError(t, err)

	var got draft
	ok, err := s.Get(ctx, id, session.FieldAdmin, &got)
	require.NoError(t, err)
	require.False(t, ok, "unset field should report not found")

	want := draft{Selected: "ASSOC180", Drafts: map[int64]string{3: "edited"}}
	require.NoError(t, s.Set(ctx, id, session.FieldAdmin, want))

	ok, err = s.Get(ctx, id, session.FieldAdmin, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_Take(t *testing.T) {
	ctx := context.Background()
	s, _ := makeStore(t)

	require.NoError(t, s.Set(ctx, "sid", session.FieldFlash, "Login failed: check your credentials"))

	var msg string
	ok, err := s.Take(ctx, "sid", session.FieldFlash, &msg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Login failed: check your credentials", msg)

	ok, err = s.Take(ctx, "sid", session.FieldFlash, &msg)
	require.NoError(t, err)
	assert.False(t, ok, "flash should be consumed once")
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s, mr := makeStore(t)

	require.NoError(t, s.Set(ctx, "sid", session.FieldUpstream, map[string]string{"session": "abc"}))
	assert.Equal(t, time.Hour, mr.TTL("test:session:sid"))

	mr.FastForward(time.Hour + time.Second)

	var cred map[string]string
	ok, err := s.Get(ctx, "sid", session.FieldUpstream, &cred)
	require.NoError(t, err)
	assert.False(t, ok, "session should expire after its TTL")
}

func TestStore_TouchSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := makeStore(t)

	require.NoError(t, s.Set(ctx, "sid", session.FieldUpstream, map[string]string{"session": "abc"}))

	mr.FastForward(50 * time.Minute)
	require.NoError(t, s.Touch(ctx, "sid"))
	assert.Equal(t, time.Hour, mr.TTL("test:session:sid"))

	mr.FastForward(50 * time.Minute)

	var cred map[string]string
	ok, err := s.Get(ctx, "sid", session.FieldUpstream, &cred)
	require.NoError(t, err)
	assert.True(t, ok, "an active session outlives its first TTL")
	assert.Equal(t, "abc", cred["session"])

	require.NoError(t, s.Touch(ctx, "unknown"))
	assert.False(t, mr.Exists("test:session:unknown"))
}

func TestStore_Destroy(t *testing.T) {
	ctx := context.Background()
	s, _ := makeStore(t)

	require.NoError(t, s.Set(ctx, "sid", session.FieldUpstream, map[string]string{"session": "abc"}))
	require.NoError(t, s.Set(ctx, "sid", session.FieldAdmin, draft{Selected: "X"}))
	require.NoError(t, s.Destroy(ctx, "sid"))

	var d draft
	ok, err := s.Get(ctx, "sid", session.FieldAdmin, &d)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokens(t *testing.T) {
	tk := session.NewTokens("secret")

	token, err := tk.Issue("0190f3d2-aaaa-7bbb-8ccc-000000000001")
	require.NoError(t, err)

	id, err := tk.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "0190f3d2-aaaa-7bbb-8ccc-000000000001", id)

	_, err = session.NewTokens("other").Parse(token)
	assert.ErrorIs(t, err, session.ErrInvalidToken, "a token signed with another secret must be rejected")

	_, err = tk.Parse("garbage")
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func makeStore(t *testing.T) (*session.Store, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return session.NewStore(session.Config{
		Redis:  rc,
		Prefix: "test",
		TTL:    time.Hour,
	}), mr
}
