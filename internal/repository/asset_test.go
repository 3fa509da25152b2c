package repository

import (
	"context"
	"errors"
	"testing"
	"time"
	"tradeengine/types"

	"github.com/jackc/pgx/v5"
)

type mockAssetsRepository struct {
	sqlError error
}

func TestDatabase_GetAssetByTicker(t *testing.T) {
	type args struct {
		ticker string
	}
	tests := []struct {
		name    string
		args    args
		want    *types.Asset
		sqlErr  error
		wantErr error
	}{
		{"should throw ErrAssetNotFound", args{"RELIANCE"}, nil, pgx.ErrNoRows, ErrAssetNotFound},
		{"should pass through driver errors", args{"RELIANCE"}, nil, errors.New("conn reset"), nil},
		{"should return asset", args{"RELIANCE"}, &types.Asset{Ticker: "RELIANCE", Id: 1, Exchange: "NSE"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				assets: mockAssetsRepository{
					sqlError: tt.sqlErr,
				},
			}
			got, err := db.GetAssetByTicker(context.Background(), tt.args.ticker)
			if tt.sqlErr != nil {
				if err == nil {
					t.Fatalf("GetAssetByTicker() expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("GetAssetByTicker() error = %v, wantErr %v", err, tt.wantErr)
				}
				if tt.wantErr == nil && errors.Is(err, ErrAssetNotFound) {
					t.Errorf("GetAssetByTicker() driver error reported as not found")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAssetByTicker() unexpected error = %v", err)
			}
			if got.Ticker != tt.want.Ticker {
				t.Errorf("GetAssetByTicker() ticker = %v, want %v", got, tt.want)
			}
			if got.Id != tt.want.Id {
				t.Errorf("GetAssetByTicker() id = %v, want %v", got, tt.want)
			}
			if got.Exchange != tt.want.Exchange {
				t.Errorf("GetAssetByTicker() exchange = %v, want %v", got.Exchange, tt.want.Exchange)
			}
			if got.Type != types.AssetTypeStock {
				t.Errorf("GetAssetByTicker() type = %v, want %v", got.Type, types.AssetTypeStock)
			}
		})
	}
}

func (m mockAssetsRepository) GetAssetByTicker(_ context.Context, ticker string) (assetRow, error) {
	if m.sqlError != nil {
		return assetRow{}, m.sqlError
	}
	curTime := time.UnixMilli(1)
	return assetRow{
		ID:         1,
		Ticker:     ticker,
		Name:       "Reliance Industries",
		Exchange:   "NSE",
		Type:       string(types.AssetTypeStock),
		CreatedAt:  &curTime,
		ModifiedAt: nil,
	}, nil
}
