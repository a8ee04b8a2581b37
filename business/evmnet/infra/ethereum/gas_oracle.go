package ethereum

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
	"github.com/fd1az/arbitrage-bot/business/evmnet/evmconst"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/cache"
	"github.com/fd1az/arbitrage-bot/internal/httpclient"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/ratelimit"
)

// gasPricesCacheKey is the single entry the oracle client's TTL cache
// ever holds; there is only ever one oracle endpoint per client.
const gasPricesCacheKey = "gas-prices"

// gasOracleMetrics holds OTEL metric instruments for the gas oracle client.
type gasOracleMetrics struct {
	fetches       metric.Int64Counter
	fetchFailures metric.Int64Counter
	sanitized     metric.Int64Counter
}

// gasOracleResponse is the wire shape the oracle endpoint returns:
// {"slow": number, "average": number, "fast": number} in gwei.
type gasOracleResponse struct {
	Slow    float64 `json:"slow"`
	Average float64 `json:"average"`
	Fast    float64 `json:"fast"`
}

// GasOracleClient polls an HTTP gas price oracle and returns sanitized
// {slow,average,fast} gwei tiers. It never returns an error to its
// caller: on any failure it falls back to the last good reading, or to
// the package defaults if nothing has ever been fetched.
type GasOracleClient struct {
	url     string
	http    httpclient.Client
	limiter *ratelimit.Limiter
	log     logger.LoggerInterface
	tracer  trace.Tracer
	metrics *gasOracleMetrics

	cache    *cache.Cache[string, domain.GasPrices]
	lastGood domain.GasPrices
}

// NewGasOracleClient builds a GasOracleClient against oracleURL, polling
// at most requestsPerMinute times per minute.
func NewGasOracleClient(oracleURL string, requestsPerMinute int, log logger.LoggerInterface) (*GasOracleClient, error) {
	httpClient, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("gas-oracle"),
		httpclient.WithBaseURL(oracleURL),
	)
	if err != nil {
		return nil, fmt.Errorf("gas oracle client: build http client: %w", err)
	}

	g := &GasOracleClient{
		url:      oracleURL,
		http:     httpClient,
		limiter:  ratelimit.New(requestsPerMinute),
		log:      log,
		tracer:   otel.Tracer(tracerName),
		cache:    cache.New[string, domain.GasPrices](evmconst.GasOracleCacheTTL),
		lastGood: domain.GasPrices{Slow: 1, Average: 1, Fast: 1},
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("gas oracle client: init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracleClient) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.fetches, err = meter.Int64Counter(
		"evmnet_gas_oracle_fetches_total",
		metric.WithDescription("Total gas oracle fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.fetchFailures, err = meter.Int64Counter(
		"evmnet_gas_oracle_fetch_failures_total",
		metric.WithDescription("Gas oracle fetches that fell back to the last good reading"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.sanitized, err = meter.Int64Counter(
		"evmnet_gas_oracle_sanitized_total",
		metric.WithDescription("Gas oracle tiers clamped to the configured safety ceiling"),
		metric.WithUnit("{tier}"),
	)
	return err
}

// Fetch polls the oracle once and returns the sanitized tiers. It never
// fails: a request error, rate-limit wait cancellation, or malformed
// body all resolve to the last good reading.
func (g *GasOracleClient) Fetch(ctx context.Context) domain.GasPrices {
	ctx, span := g.tracer.Start(ctx, "evmnet.gas_oracle.fetch",
		trace.WithAttributes(attribute.String("url", g.url)),
	)
	defer span.End()

	g.metrics.fetches.Add(ctx, 1)

	if cached, ok := g.cache.Get(ctx, gasPricesCacheKey); ok {
		span.SetStatus(codes.Ok, "cached")
		return cached
	}

	if err := g.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		g.metrics.fetchFailures.Add(ctx, 1)
		return g.lastGood
	}

	var body gasOracleResponse
	resp, err := g.http.NewRequest().SetResult(&body).Get(ctx, "")
	if err != nil || resp.IsError() {
		span.SetStatus(codes.Error, "fetch failed")
		g.metrics.fetchFailures.Add(ctx, 1)
		g.log.Warn(ctx, "gas oracle fetch failed, using last good reading",
			"url", g.url, "error", err)
		return g.lastGood
	}

	sanitized := g.sanitize(ctx, domain.GasPrices{
		Slow:    body.Slow,
		Average: body.Average,
		Fast:    body.Fast,
	})

	g.lastGood = sanitized
	g.cache.Set(ctx, gasPricesCacheKey, sanitized, evmconst.GasOracleCacheTTL)
	span.SetAttributes(
		attribute.Float64("slow", sanitized.Slow),
		attribute.Float64("average", sanitized.Average),
		attribute.Float64("fast", sanitized.Fast),
	)
	span.SetStatus(codes.Ok, "fetched")

	return sanitized
}

// Close stops the client's background cache sweep goroutine.
func (g *GasOracleClient) Close() {
	g.cache.Close()
}

// sanitize clamps every tier to [1, MaxAutoGasPriceGwei]; a tier that
// came back non-finite or non-positive falls back to the last good
// value for that tier rather than being clamped to 1.
func (g *GasOracleClient) sanitize(ctx context.Context, prices domain.GasPrices) domain.GasPrices {
	clamp := func(v, fallback float64) float64 {
		if v <= 0 {
			return fallback
		}
		clamped := domain.Clamp(v, 1, evmconst.MaxAutoGasPriceGwei)
		if clamped != v {
			g.metrics.sanitized.Add(ctx, 1)
			g.log.Debug(ctx, "gas oracle tier sanitized",
				"code", apperror.CodeOracleSanitized, "reported", v, "clamped", clamped)
		}
		return clamped
	}

	return domain.GasPrices{
		Slow:    clamp(prices.Slow, g.lastGood.Slow),
		Average: clamp(prices.Average, g.lastGood.Average),
		Fast:    clamp(prices.Fast, g.lastGood.Fast),
	}
}
