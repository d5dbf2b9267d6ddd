package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMICForSymbol(t *testing.T) {
	testCases := map[string]string{
		"AAPL":    "xnys",
		"BRK.B":   "xnys",
		"VOD.L":   "xlon",
		"SAP.DE":  "xfra",
		"7203.T":  "xtks",
		"0700.HK": "xhkg",
		"shop.to": "xtse",
	}
	for symbol, mic := range testCases {
		require.Equal(t, mic, MICForSymbol(symbol), symbol)
	}
}

func TestFallbackCalendarHours(t *testing.T) {
	cal := &TradingCalendar{Fallback: true, Timezone: time.UTC}

	wednesday := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)
	require.True(t, cal.IsTradingDay(wednesday))
	require.False(t, cal.IsTradingDay(wednesday.AddDate(0, 0, 3)))

	require.False(t, cal.IsOpenOnMinute(wednesday.Add(9*time.Hour+29*time.Minute)))
	require.True(t, cal.IsOpenOnMinute(wednesday.Add(9*time.Hour+30*time.Minute)))
	require.True(t, cal.IsOpenOnMinute(wednesday.Add(15*time.Hour+59*time.Minute)))
	require.False(t, cal.IsOpenOnMinute(wednesday.Add(16*time.Hour)))
}

func TestMarketSchedulerWeekend(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL", "MSFT"}, nil)
	require.Len(t, ms.Calendars, 2)
	require.Same(t, ms.Calendars["AAPL"], ms.Calendars["MSFT"])

	saturdayNoon := time.Date(2024, time.June, 15, 16, 0, 0, 0, time.UTC)
	require.False(t, ms.AnyMarketOpenAt(saturdayNoon))

	ms.UpdateSymbols(nil)
	require.Empty(t, ms.Calendars)
	require.False(t, ms.AnyMarketOpen())
}
