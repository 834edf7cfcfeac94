package discounts

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryPolicyRepo struct {
	policy Policy
	gets   int
}

func (r *memoryPolicyRepo) Get(ctx context.Context) (Policy, error) {
	r.gets++
	if r.policy.ID == 0 {
		// Lazy creation with defaults, like the postgres repository.
		r.policy = Policy{ID: 1, Percent: DefaultPercent, Active: false, UpdatedAt: time.Now()}
	}
	return r.policy, nil
}

func (r *memoryPolicyRepo) Update(ctx context.Context, input PolicyInput) (Policy, error) {
	if _, err := r.Get(ctx); err != nil {
		return Policy{}, err
	}
	r.policy.Deadline = input.Deadline
	r.policy.Percent = input.Percent
	r.policy.Active = input.Active
	r.policy.UpdatedAt = time.Now()
	return r.policy, nil
}

func newTestService(t *testing.T) (*Service, *memoryPolicyRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &memoryPolicyRepo{}
	return NewService(repo, NewCache(client, time.Minute)), repo
}

func TestCurrentLazyDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	policy, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(DefaultPercent), policy.Percent)
	require.False(t, policy.Active)
	require.Nil(t, policy.Deadline)
}

func TestCurrentServedFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Current(ctx)
	require.NoError(t, err)
	_, err = svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.gets)
}

func TestUpdateClampsAndInvalidates(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Current(ctx)
	require.NoError(t, err)

	deadline := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, PolicyInput{Deadline: &deadline, Percent: 250, Active: true})
	require.NoError(t, err)
	require.Equal(t, int64(100), updated.Percent)

	// The next read must see the new configuration, not the cached one.
	policy, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(100), policy.Percent)
	require.True(t, policy.Active)
	require.True(t, repo.gets >= 2)
}

func TestEffectivePercentHonorsExplicitZero(t *testing.T) {
	require.Equal(t, int64(0), Policy{Percent: 0}.EffectivePercent())
	require.Equal(t, int64(0), Policy{Percent: -5}.EffectivePercent())
	require.Equal(t, int64(100), Policy{Percent: 250}.EffectivePercent())
	require.Equal(t, int64(10), Policy{Percent: 10}.EffectivePercent())
}

func TestUpdateToZeroPercentSticks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	deadline := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, PolicyInput{Deadline: &deadline, Percent: 0, Active: true})
	require.NoError(t, err)
	require.Equal(t, int64(0), updated.Percent)
	require.Equal(t, int64(0), updated.EffectivePercent())

	policy, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), policy.EffectivePercent())
}

func TestWithinWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	asOf := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// No deadline configured: the window is closed.
	open, err := svc.WithinWindow(ctx, asOf)
	require.NoError(t, err)
	require.False(t, open)

	deadline := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err = svc.Update(ctx, PolicyInput{Deadline: &deadline, Percent: 10, Active: true})
	require.NoError(t, err)

	open, err = svc.WithinWindow(ctx, asOf)
	require.NoError(t, err)
	require.True(t, open)

	open, err = svc.WithinWindow(ctx, deadline.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.False(t, open)
}
