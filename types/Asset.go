package types

import (
	"time"
)

type AssetType string

const (
	AssetTypeStock AssetType = "STOCK"
	AssetTypeEtf   AssetType = "ETF"
	AssetTypeIndex AssetType = "INDEX"
)

type Asset struct {
	Id         int       `json:"id"`
	Ticker     string    `json:"ticker"`
	Name       string    `json:"name"`
	Exchange   string    `json:"exchange"`
	Type       AssetType `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
