package yahoo

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"yfinance-go/src/extract"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				DataGranularity    string  `json:"dataGranularity"`
				Range              string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"` // null when the bar has no trades
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type bar struct {
	timestamp int64
	open      float64
	high      float64
	low       float64
	close     float64
	volume    float64
}

// -----------------------------------------------------------------------------

// ParsePriceHistory turns a chart document into bars sorted by time. Bars
// with a null field, a non-positive close or a negative volume are dropped.
// Percent changes are relative to the previous kept bar; the first bar is
// compared with chartPreviousClose when upstream provides it.
func ParsePriceHistory(symbol string, doc extract.Node, log *logger.Logger) ([]models.MStockPrice, error) {
	if log == nil {
		log = logger.NewLogger(nil, "ChartParser")
	}

	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("chart decode failed for %s: %w", symbol, err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return []models.MStockPrice{}, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data in response for %s", symbol)
	}

	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Close) != n || len(quote.Open) != n || len(quote.High) != n ||
		len(quote.Low) != n || len(quote.Volume) != n {
		return nil, fmt.Errorf("data alignment error for %s", symbol)
	}

	bars := make([]bar, 0, n)
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
			quote.Close[i] == nil || quote.Volume[i] == nil {
			log.Debug("Skipping incomplete bar for %s at index %d", symbol, i)
			continue
		}

		b := bar{
			timestamp: ts,
			open:      *quote.Open[i],
			high:      *quote.High[i],
			low:       *quote.Low[i],
			close:     *quote.Close[i],
			volume:    *quote.Volume[i],
		}
		if b.close <= 0 || b.volume < 0 {
			log.Debug("Skipping invalid bar for %s: close=%f, volume=%f", symbol, b.close, b.volume)
			continue
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].timestamp < bars[j].timestamp
	})

	if len(bars) == 0 {
		return []models.MStockPrice{}, nil
	}

	prevClose := bars[0].close
	if result.Meta.ChartPreviousClose > 0 {
		prevClose = result.Meta.ChartPreviousClose
	}
	prevVolume := bars[0].volume

	now := time.Now().UTC()
	series := make([]models.MStockPrice, 0, len(bars))
	for _, b := range bars {
		var pricePct, volPct float64
		if prevClose > 0 {
			pricePct = (b.close - prevClose) / prevClose
		}
		if prevVolume > 0 {
			volPct = (b.volume - prevVolume) / prevVolume
		}

		series = append(series, models.MStockPrice{
			Symbol:              symbol,
			Timestamp:           b.timestamp,
			Open:                b.open,
			High:                b.high,
			Low:                 b.low,
			Price:               b.close,
			Volume:              b.volume,
			PricePercentChange:  pricePct,
			VolumePercentChange: volPct,
			CreatedAt:           now,
		})
		prevClose = b.close
		prevVolume = b.volume
	}

	log.Debug("Parsed %s: %d bars [%d -> %d]", symbol, len(series), series[0].Timestamp, series[len(series)-1].Timestamp)
	return series, nil
}
