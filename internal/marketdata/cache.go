// Package marketdata provides engine.MarketDataSource implementations: a CSV
// cache reader, a Postgres aggregate reader, a time-gated replay view and a
// guard that adds timeouts, pacing and a circuit breaker to any of them.
package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var ErrMalformedCache = errors.New("malformed cache file")

// timestamp layouts seen in cache files, tried in order
var cacheTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CacheSource serves bars from <dir>/<SYMBOL>/<timeframe>.csv files with a
// datetime,open,high,low,close,volume header. Files are re-read when their
// modification time changes, so an external downloader can refresh them.
type CacheSource struct {
	dir      string
	interval types.Interval
	loc      *time.Location
	quality  Validator

	mu    sync.Mutex
	files map[string]cachedFile
}

type cachedFile struct {
	modTime time.Time
	candles []types.Candle
}

func NewCacheSource(dir string, interval types.Interval, loc *time.Location, quality Validator) *CacheSource {
	if loc == nil {
		loc = time.UTC
	}
	return &CacheSource{
		dir:      dir,
		interval: interval,
		loc:      loc,
		quality:  quality,
		files:    make(map[string]cachedFile),
	}
}

func (s *CacheSource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	candles, err := s.Historical(ctx, symbol, s.interval)
	if err != nil {
		return decimal.Zero, err
	}
	return candles[len(candles)-1].Close, nil
}

func (s *CacheSource) Historical(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candles, err := s.load(symbol, interval)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, interval.CacheFileName(), types.ErrNoData)
	}
	return candles, nil
}

// MarketContext is not part of the cache layout; the defaults apply.
func (s *CacheSource) MarketContext(ctx context.Context) (types.MarketContext, error) {
	return types.DefaultMarketContext(), nil
}

func (s *CacheSource) ValidateCandles(candles []types.Candle) error {
	return s.quality.Validate(candles)
}

func (s *CacheSource) path(symbol string, interval types.Interval) string {
	return filepath.Join(s.dir, symbol, interval.CacheFileName()+".csv")
}

func (s *CacheSource) load(symbol string, interval types.Interval) ([]types.Candle, error) {
	path := s.path(symbol, interval)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, types.ErrNoData)
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.files[path]; ok && cached.modTime.Equal(info.ModTime()) {
		return cached.candles, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	candles, err := readCandlesCSV(f, symbol, interval, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.files[path] = cachedFile{modTime: info.ModTime(), candles: candles}
	return candles, nil
}

// readCandlesCSV parses a cache file. Columns are located by header name so
// extra columns are ignored. Rows come back sorted by timestamp.
func readCandlesCSV(r io.Reader, symbol string, interval types.Interval, loc *time.Location) ([]types.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedCache, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["datetime"]; !ok {
		if i, ok := cols["date"]; ok {
			cols["datetime"] = i
		}
	}
	for _, name := range []string{"datetime", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedCache, name)
		}
	}

	var candles []types.Candle
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCache, line, err)
		}
		c, err := parseCandleRecord(record, cols, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCache, line, err)
		}
		c.Symbol = symbol
		c.Interval = interval
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

func parseCandleRecord(record []string, cols map[string]int, loc *time.Location) (types.Candle, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(record) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(record[i]), nil
	}

	raw, err := field("datetime")
	if err != nil {
		return types.Candle{}, err
	}
	ts, err := parseCacheTime(raw, loc)
	if err != nil {
		return types.Candle{}, err
	}

	values := make(map[string]decimal.Decimal, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		s, err := field(name)
		if err != nil {
			return types.Candle{}, err
		}
		if s == "" && name == "volume" {
			values[name] = decimal.Zero
			continue
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return types.Candle{}, fmt.Errorf("%s: %w", name, err)
		}
		values[name] = v
	}

	return types.Candle{
		Open:      values["open"],
		High:      values["high"],
		Low:       values["low"],
		Close:     values["close"],
		Volume:    values["volume"],
		Timestamp: ts,
	}, nil
}

func parseCacheTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range cacheTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
