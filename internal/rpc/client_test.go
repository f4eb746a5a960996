package rpc

import (
	"testing"
	"time"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/rpctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *rpctest.Server) {
	t.Helper()
	fake := rpctest.New()
	fake.Start()
	t.Cleanup(fake.Close)
	client := NewClient(config.AdmissionConfig{RPCBaseURL: fake.URL(), RPCTimeout: 2 * time.Second})
	return client, fake
}

func TestClientCheckSubscriptionLimitsAllowed(t *testing.T) {
	client, fake := newTestClient(t)
	fake.LimitsResult = models.AdmissionResult{Allowed: true}

	result, err := client.CheckSubscriptionLimits("user-1", 1, 0)

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Contains(t, fake.Calls, "check_subscription_limits")
}

func TestClientCheckSubscriptionLimitsDenied(t *testing.T) {
	client, fake := newTestClient(t)
	fake.LimitsResult = models.AdmissionResult{Allowed: false, Reason: "message_quota_exceeded"}

	result, err := client.CheckSubscriptionLimits("user-1", 1, 0)

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "message_quota_exceeded", result.Reason)
}

func TestClientDeductWalletBalanceInsufficientFunds(t *testing.T) {
	fake := rpctest.New()
	fake.DebitErr = true
	fake.Start()
	defer fake.Close()
	client := NewClient(config.AdmissionConfig{RPCBaseURL: fake.URL()})

	_, err := client.DeductWalletBalance("user-1", 10, nil, "send", "ref-1")

	require.Error(t, err)
}

func TestClientCalculateTopupBonusFallsBackToZeroOnError(t *testing.T) {
	client := NewClient(config.AdmissionConfig{RPCBaseURL: "http://127.0.0.1:1", RPCTimeout: 100 * time.Millisecond})

	bonus := client.CalculateTopupBonus(1000)

	assert.Equal(t, int64(0), bonus)
}

func TestClientIncrementSubscriptionUsage(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.IncrementSubscriptionUsage("user-1", 1, 0)

	require.NoError(t, err)
	assert.Contains(t, fake.Calls, "increment_subscription_usage")
}
