package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spx-backtester/internal/errors"
	"spx-backtester/internal/models"
	"spx-backtester/internal/performance"
	"spx-backtester/pkg/utils"
)

// PolygonClient fetches historical bars, chains and quotes from a
// Polygon-style market data REST API.
type PolygonClient struct {
	BaseURL    string
	apiKey     string
	underlying string
	liquidity  string

	http    *http.Client
	limiter *performance.RateLimiter
	pool    *performance.WorkerPool
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewPolygonClient creates a client for the given API endpoint.
func NewPolygonClient(baseURL, apiKey, underlying, liquidity string, logger zerolog.Logger) *PolygonClient {
	if baseURL == "" {
		baseURL = "https://api.polygon.io"
	}
	if underlying == "" {
		underlying = "I:SPX"
	}
	if liquidity == "" {
		liquidity = "SPY"
	}
	return &PolygonClient{
		BaseURL:    baseURL,
		apiKey:     apiKey,
		underlying: underlying,
		liquidity:  liquidity,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
		limiter: performance.NewRateLimiter(20, 5),
		pool:    performance.NewWorkerPool(8),
		retry:   utils.DefaultRetryConfig(),
		logger:  logger.With().Str("component", "polygon").Logger(),
	}
}

type aggsResponse struct {
	Results []struct {
		T int64   `json:"t"` // epoch millis
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

type chainResponse struct {
	Results []struct {
		Details struct {
			Ticker string  `json:"ticker"`
			Strike float64 `json:"strike_price"`
			Type   string  `json:"contract_type"`
		} `json:"details"`
		LastQuote struct {
			Bid float64 `json:"bid"`
			Ask float64 `json:"ask"`
		} `json:"last_quote"`
		Day struct {
			Close  float64 `json:"close"`
			Volume int64   `json:"volume"`
		} `json:"day"`
		OpenInterest      int64   `json:"open_interest"`
		ImpliedVolatility float64 `json:"implied_volatility"`
		Greeks            struct {
			Delta float64 `json:"delta"`
			Gamma float64 `json:"gamma"`
			Theta float64 `json:"theta"`
			Vega  float64 `json:"vega"`
		} `json:"greeks"`
	} `json:"results"`
	NextURL string `json:"next_url"`
}

type quotesResponse struct {
	Results []struct {
		BidPrice float64 `json:"bid_price"`
		AskPrice float64 `json:"ask_price"`
		BidSize  int64   `json:"bid_size"`
		AskSize  int64   `json:"ask_size"`
	} `json:"results"`
}

func (c *PolygonClient) get(ctx context.Context, rawURL string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := utils.RetryWithResult(ctx, c.retry, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return struct{}{}, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", errors.ErrConnectionFailed, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return struct{}{}, errors.ErrRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return struct{}{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
		}
		return struct{}{}, json.NewDecoder(resp.Body).Decode(target)
	})
	return err
}

func (c *PolygonClient) aggsURL(ticker string, multiplier int, timespan string, date time.Time) string {
	// Bound the request to the regular session; the aggs endpoint accepts
	// millisecond timestamps as the from/to path segments.
	sessionOpen, sessionClose := utils.SessionInNewYork(date)
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%d/%d",
		c.BaseURL, url.PathEscape(ticker), multiplier, timespan,
		sessionOpen.UnixMilli(), sessionClose.UnixMilli())
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("adjusted", "true")
	q.Set("sort", "asc")
	q.Set("limit", "50000")
	return u + "?" + q.Encode()
}

func multiplierFor(g models.Granularity) int {
	if g == models.Granularity5Min {
		return 5
	}
	return 1
}

// UnderlyingBars fetches the session's OHLCV bars for the underlying
// index, dropping any pre- or post-market bars the API returns. An empty
// slice (never an error) is returned when the API has no data.
func (c *PolygonClient) UnderlyingBars(ctx context.Context, date time.Time, granularity models.Granularity) ([]models.Bar, error) {
	var resp aggsResponse
	if err := c.get(ctx, c.aggsURL(c.underlying, multiplierFor(granularity), "minute", date), &resp); err != nil {
		return nil, errors.NewDataError(c.underlying, "aggs", err)
	}

	bars := make([]models.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		ts := time.UnixMilli(r.T).In(utils.NewYorkLocation)
		if !utils.WithinRegularHours(ts) {
			continue
		}
		bars = append(bars, models.Bar{
			Timestamp: ts,
			Open:      r.O,
			High:      r.H,
			Low:       r.L,
			Close:     r.C,
			Volume:    int64(r.V),
		})
	}
	return bars, nil
}

// LiquidityVolumeBars fetches the liquidity proxy's volume series for the
// regular session. The proxy trades extended hours, so the filter matters:
// the first bar must be the 09:30 bar to anchor the volume baseline.
func (c *PolygonClient) LiquidityVolumeBars(ctx context.Context, date time.Time, granularity models.Granularity) ([]models.VolumeBar, error) {
	var resp aggsResponse
	if err := c.get(ctx, c.aggsURL(c.liquidity, multiplierFor(granularity), "minute", date), &resp); err != nil {
		return nil, errors.NewDataError(c.liquidity, "aggs", err)
	}

	bars := make([]models.VolumeBar, 0, len(resp.Results))
	for _, r := range resp.Results {
		ts := time.UnixMilli(r.T).In(utils.NewYorkLocation)
		if !utils.WithinRegularHours(ts) {
			continue
		}
		bars = append(bars, models.VolumeBar{
			Timestamp: ts,
			Volume:    int64(r.V),
		})
	}
	return bars, nil
}

// OptionChain fetches the option chain snapshot for the expiration.
func (c *PolygonClient) OptionChain(ctx context.Context, date, expiration time.Time, underlying string, _ models.Granularity) ([]models.ChainRow, error) {
	if underlying == "" {
		underlying = c.underlying
	}
	u := fmt.Sprintf("%s/v3/snapshot/options/%s", c.BaseURL, url.PathEscape(underlying))
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("expiration_date", expiration.Format("2006-01-02"))
	q.Set("limit", "250")

	var rows []models.ChainRow
	next := u + "?" + q.Encode()
	for next != "" {
		var resp chainResponse
		if err := c.get(ctx, next, &resp); err != nil {
			return nil, errors.NewDataError(underlying, "chain", err)
		}
		for _, r := range resp.Results {
			typ := models.OptionCall
			if r.Details.Type == "put" {
				typ = models.OptionPut
			}
			rows = append(rows, models.ChainRow{
				Contract:     r.Details.Ticker,
				Strike:       int(r.Details.Strike),
				Type:         typ,
				Bid:          r.LastQuote.Bid,
				Ask:          r.LastQuote.Ask,
				Last:         r.Day.Close,
				Volume:       r.Day.Volume,
				OpenInterest: r.OpenInterest,
				IV:           r.ImpliedVolatility,
				Delta:        r.Greeks.Delta,
				Gamma:        r.Greeks.Gamma,
				Theta:        r.Greeks.Theta,
				Vega:         r.Greeks.Vega,
			})
		}
		next = resp.NextURL
		if next != "" {
			next += "&apiKey=" + url.QueryEscape(c.apiKey)
		}
	}
	return rows, nil
}

// OptionQuotes fetches the latest quote at or before ts for each contract,
// fanning requests across the worker pool. Contracts with no quote are
// absent from the result; malformed identifiers yield a zero-valued quote.
func (c *PolygonClient) OptionQuotes(ctx context.Context, contracts []string, ts time.Time) (map[string]models.Quote, error) {
	quotes := make(map[string]models.Quote, len(contracts))
	var mu sync.Mutex

	tasks := make([]func(), 0, len(contracts))
	for _, id := range contracts {
		id := id
		if _, err := ParseContract(id); err != nil {
			// Malformed identifier: zero stand-in, never abort the batch.
			mu.Lock()
			quotes[id] = models.Quote{}
			mu.Unlock()
			continue
		}
		tasks = append(tasks, func() {
			q, err := c.tickQuote(ctx, id, ts)
			if err != nil {
				c.logger.Warn().Err(err).Str("contract", id).Msg("quote fetch failed")
				return
			}
			mu.Lock()
			quotes[id] = q
			mu.Unlock()
		})
	}

	c.pool.Run(ctx, tasks)
	return quotes, ctx.Err()
}

func (c *PolygonClient) tickQuote(ctx context.Context, contract string, ts time.Time) (models.Quote, error) {
	u := fmt.Sprintf("%s/v3/quotes/%s", c.BaseURL, url.PathEscape(contract))
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("timestamp.lte", strconv.FormatInt(ts.UnixNano(), 10))
	q.Set("order", "desc")
	q.Set("limit", "1")

	var resp quotesResponse
	if err := c.get(ctx, u+"?"+q.Encode(), &resp); err != nil {
		return models.Quote{}, err
	}
	if len(resp.Results) == 0 {
		return models.Quote{}, errors.ErrQuoteUnavailable
	}

	r := resp.Results[0]
	return models.Quote{
		Bid:    r.BidPrice,
		Ask:    r.AskPrice,
		Last:   (r.BidPrice + r.AskPrice) / 2,
		Volume: r.BidSize + r.AskSize,
	}, nil
}
