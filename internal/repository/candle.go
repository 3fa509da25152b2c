package repository

import (
	"context"
	"errors"
	"time"
	"tradeengine/types"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.Day:            "1 day",
}

// GetCandles aggregates raw candles of an asset into interval buckets in
// [start, end).
func (db *Database) GetCandles(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := aggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		Starttime:  &start,
		Endtime:    &end,
	}
	candles, err := db.candles.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(candles, interval, ticker), nil
}

func convertCandles(candleDAOs []aggregateRow, interval types.Interval, ticker string) []types.Candle {
	candles := make([]types.Candle, 0, len(candleDAOs))
	for _, dao := range candleDAOs {
		candles = append(candles, types.Candle{
			AssetId:   int(dao.AssetID),
			Symbol:    ticker,
			Open:      dao.Open,
			Close:     dao.Close,
			High:      dao.High,
			Low:       dao.Low,
			Volume:    dao.Volume,
			Interval:  interval,
			Timestamp: derefTime(dao.Bucket),
		})
	}
	return candles
}
