package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/storage/memory"
)

func TestPolicyService_FallbackWhenMissing(t *testing.T) {
	svc := app.NewPolicyService(memory.New(), nil, time.Minute, "")
	p, err := svc.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackPolicy(domain.DefaultPolicyID), p)
}

func TestPolicyService_ReadThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	st := memory.New()
	svc := app.NewPolicyService(st, cache, time.Minute, "")
	ctx := context.Background()

	in := domain.Policy{
		CheckInTime: "15:00", CheckOutTime: "11:00",
		CancellationDeadlineHours: 48, RefundPercent: 80, ServiceFeePercent: 5,
	}
	saved, err := svc.Put(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPolicyID, saved.ID)
	assert.False(t, mr.Exists("policy:default"))

	got, err := svc.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	assert.True(t, mr.Exists("policy:default"))

	// a write behind the service's back is hidden until the entry goes away
	changed := saved
	changed.RefundPercent = 10
	require.NoError(t, st.UpsertPolicy(ctx, changed))
	got, _ = svc.Get(ctx, "DEFAULT")
	assert.Equal(t, 80.0, got.RefundPercent)

	mr.FastForward(2 * time.Minute)
	got, _ = svc.Get(ctx, "")
	assert.Equal(t, 10.0, got.RefundPercent)

	// Put evicts
	changed.RefundPercent = 25
	_, err = svc.Put(ctx, changed)
	require.NoError(t, err)
	assert.False(t, mr.Exists("policy:default"))
	got, _ = svc.Get(ctx, "")
	assert.Equal(t, 25.0, got.RefundPercent)
}
