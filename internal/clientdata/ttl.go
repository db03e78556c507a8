package clientdata

import "time"

// TTL constants for cached provider responses.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLDailySeries is the default freshness window for daily OHLCV
	// responses. Intraday updates to the current bar make longer
	// windows misleading.
	TTLDailySeries = 15 * time.Minute

	// TTLDailySeriesClosed can be used once the trading day is over,
	// when the series will not change until the next session.
	TTLDailySeriesClosed = 12 * time.Hour
)
