package models

import (
	"github.com/mmdatafocus/boletos_backend/config"
)

// BillingStatisticsCacheKey holds the cached statistics payload (see reports).
const BillingStatisticsCacheKey = "billingStatistics"

// invalidateBillingStatistics drops the cached statistics after any write
// that changes counts, amounts or lot names.
func invalidateBillingStatistics() {
	if err := config.RemoveRedisKey(BillingStatisticsCacheKey); err != nil {
		config.LogError(config.GetLogger(), "models", "invalidateBillingStatistics", "RemoveRedisKey", nil, err)
	}
}
