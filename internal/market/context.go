package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"futures-chat/internal/exchange"
)

const (
	// candleFetchLimit 需要覆盖最长指标周期（SMA20），多取一些留余量。
	candleFetchLimit = 50
	// candleRenderCount 为渲染给模型的最近K线数量。
	candleRenderCount = 10

	smaPeriod = 20
	rsiPeriod = 14
)

type marketClient interface {
	TickerPrice(ctx context.Context, symbol string) (float64, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Candle, error)
}

// Snapshot 聚合提供给大模型的行情上下文。
type Snapshot struct {
	Symbol      string
	Price       float64
	Candles     []exchange.Candle
	SMA20       float64
	RSI14       float64
	RetrievedAt time.Time
}

// Service 负责采集行情上下文。
type Service struct {
	client  marketClient
	timeout time.Duration
	logger  *zap.Logger
}

// NewService 创建行情上下文服务。timeout 约束一次完整采集的耗时。
func NewService(client marketClient, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch 并发拉取最新价与15分钟K线，并计算 SMA/RSI 指标。
func (s *Service) Fetch(ctx context.Context, symbol string) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		price   float64
		candles []exchange.Candle
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		p, err := s.client.TickerPrice(groupCtx, symbol)
		if err != nil {
			return err
		}
		price = p
		return nil
	})

	group.Go(func() error {
		data, err := s.client.Klines(groupCtx, symbol, exchange.Interval15m, candleFetchLimit)
		if err != nil {
			return err
		}
		candles = data
		return nil
	})

	if err := group.Wait(); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{
		Symbol:      symbol,
		Price:       price,
		Candles:     candles,
		RetrievedAt: time.Now().UTC(),
	}
	snapshot.SMA20, snapshot.RSI14 = computeIndicators(candles)

	s.logger.Debug("行情上下文采集完成",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Int("candle_count", len(candles)),
	)

	return snapshot, nil
}

// computeIndicators 基于收盘价计算 SMA20 与 RSI14，数据不足时返回零值。
func computeIndicators(candles []exchange.Candle) (sma, rsi float64) {
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}

	if len(closes) > smaPeriod {
		values := talib.Sma(closes, smaPeriod)
		sma = values[len(values)-1]
	}
	if len(closes) > rsiPeriod {
		values := talib.Rsi(closes, rsiPeriod)
		rsi = values[len(values)-1]
	}
	return sma, rsi
}

// Render 将快照格式化为提示词中的行情描述块。
func (s Snapshot) Render() string {
	type candleView struct {
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	}

	recent := s.Candles
	if len(recent) > candleRenderCount {
		recent = recent[len(recent)-candleRenderCount:]
	}

	views := make([]candleView, 0, len(recent))
	for _, c := range recent {
		views = append(views, candleView{
			Open:   formatFloat(c.Open),
			High:   formatFloat(c.High),
			Low:    formatFloat(c.Low),
			Close:  formatFloat(c.Close),
			Volume: formatFloat(c.Volume),
		})
	}

	candlesJSON, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		candlesJSON = []byte("[]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\n", s.Symbol)
	fmt.Fprintf(&b, "Current price: %s\n", formatFloat(s.Price))
	if s.SMA20 > 0 {
		fmt.Fprintf(&b, "SMA(20, 15m): %s\n", formatFloat(s.SMA20))
	}
	if s.RSI14 > 0 {
		fmt.Fprintf(&b, "RSI(14, 15m): %s\n", formatFloat(s.RSI14))
	}
	fmt.Fprintf(&b, "Recent 15m candles (last %d):\n%s", len(views), candlesJSON)
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
