package repository

import (
	"context"
	"errors"
	"testing"
	"time"
	"tradeengine/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var testInterval = types.FifteenMinutes
var startTime = time.UnixMilli(0).UTC()
var endTime = startTime.Add(time.Minute * 75)

type mockCandlesRepository struct {
	sqlError error
	empty    bool
}

func TestDatabase_GetCandles(t *testing.T) {
	type args struct {
		assetId  int
		interval types.Interval
		start    time.Time
		end      time.Time
	}
	tests := []struct {
		name    string
		args    args
		want    []types.Candle
		sqlErr  error
		empty   bool
		wantErr error
	}{
		{"should throw ErrNoCandles on empty result", args{999, testInterval, startTime, endTime}, nil, nil, true, ErrNoCandles},
		{"should throw ErrNoCandles on no rows", args{999, testInterval, startTime, endTime}, nil, pgx.ErrNoRows, false, ErrNoCandles},
		{"should throw ErrIntervalNotSupported", args{999, types.Interval("W"), startTime, endTime}, nil, nil, false, ErrIntervalNotSupported},
		{"should return candles", args{999, testInterval, startTime, endTime}, mockCandles(999, startTime, endTime), nil, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				candles: mockCandlesRepository{
					sqlError: tt.sqlErr,
					empty:    tt.empty,
				},
			}
			got, err := db.GetCandles(context.Background(), tt.args.assetId, "TCS", tt.args.interval, tt.args.start, tt.args.end)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetCandles() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetCandles() unexpected error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("GetCandles() len = %d, want %d", len(got), len(tt.want))
			}
			for i := 0; i < len(tt.want); i++ {
				if got[i].AssetId != tt.args.assetId {
					t.Errorf("GetCandles() %s assetId got = %v, want %v", got[i].Timestamp, got[i].AssetId, tt.want[i].AssetId)
					break
				}
				if got[i].Symbol != "TCS" {
					t.Errorf("GetCandles() %s symbol got = %v, want TCS", got[i].Timestamp, got[i].Symbol)
					break
				}
				if got[i].Interval != tt.args.interval {
					t.Errorf("GetCandles() %s interval got = %v, want %v", got[i].Timestamp, got[i].Interval, tt.want[i].Interval)
					break
				}
				if !got[i].Timestamp.Equal(tt.want[i].Timestamp) {
					t.Errorf("GetCandles() timestamp got = %v, want %v", got[i].Timestamp, tt.want[i].Timestamp)
					break
				}
				if !got[i].High.Equal(tt.want[i].High) {
					t.Errorf("GetCandles() %s high got = %v, want %v", got[i].Timestamp, got[i].High, tt.want[i].High)
					break
				}
			}
		})
	}
}

func (m mockCandlesRepository) GetAggregates(_ context.Context, arg aggregatesParams) ([]aggregateRow, error) {
	if m.sqlError != nil {
		return []aggregateRow{}, m.sqlError
	}
	if m.empty {
		return nil, nil
	}
	if arg.TimeBucket != bucketToInterval[testInterval] {
		return nil, errors.New("unexpected bucket " + arg.TimeBucket)
	}
	var candles []aggregateRow
	i := *arg.Starttime
	for i.Before(*arg.Endtime) {
		bucket := i
		candles = append(candles, aggregateRow{
			Bucket:  &bucket,
			AssetID: arg.AssetID,
			Open:    decimal.NewFromInt(i.UnixMilli()),
			High:    decimal.NewFromInt(i.UnixMilli()),
			Low:     decimal.NewFromInt(i.UnixMilli()),
			Close:   decimal.NewFromInt(i.UnixMilli()),
			Volume:  decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return candles, nil
}

func mockCandles(assetId int, start, end time.Time) []types.Candle {
	var candles []types.Candle
	i := start
	for i.Before(end) {
		candles = append(candles, types.Candle{
			Timestamp: i,
			Interval:  testInterval,
			AssetId:   assetId,
			Symbol:    "TCS",
			Open:      decimal.NewFromInt(i.UnixMilli()),
			High:      decimal.NewFromInt(i.UnixMilli()),
			Low:       decimal.NewFromInt(i.UnixMilli()),
			Close:     decimal.NewFromInt(i.UnixMilli()),
			Volume:    decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return candles
}
