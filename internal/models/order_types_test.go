package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDownloadToken_LengthAndUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		token, err := NewDownloadToken()
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(token), 32)

		_, dup := seen[token]
		require.False(t, dup, "duplicate token after %d samples", i)
		seen[token] = struct{}{}
	}
}

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^BK-20260830-[A-Z0-9]{6}$`)

	for i := 0; i < 100; i++ {
		assert.Regexp(t, pattern, NewOrderNumber(now))
	}
}

func TestOrderHasProduct(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{ProductID: "budget-planner", Type: ItemTypeProduct},
			{ProductID: "savings-goal", Type: ItemTypeProduct},
		},
	}

	assert.True(t, order.HasProduct("budget-planner"))
	assert.False(t, order.HasProduct("invoice-tracker"))
	assert.False(t, order.HasProduct(""))
}
