package types

import (
	"fmt"
	"time"
)

type Interval string

const (
	OneMinute      Interval = "1"
	FiveMinutes    Interval = "5"
	FifteenMinutes Interval = "15"
	ThirtyMinutes  Interval = "30"
	Hour           Interval = "60"
	Day            Interval = "D"
)

var IntervalToTime = map[Interval]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    time.Minute * 5,
	FifteenMinutes: time.Minute * 15,
	ThirtyMinutes:  time.Minute * 30,
	Hour:           time.Hour,
	Day:            time.Hour * 24,
}

// cacheFileNames follows the on-disk layout of the candle cache
// (data_cache/<SYMBOL>/<name>.csv).
var cacheFileNames = map[Interval]string{
	OneMinute:      "1min",
	FiveMinutes:    "5min",
	FifteenMinutes: "15min",
	ThirtyMinutes:  "30min",
	Hour:           "60min",
	Day:            "daily",
}

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := IntervalToTime[i]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}

func (i Interval) CacheFileName() string {
	if name, ok := cacheFileNames[i]; ok {
		return name
	}
	return string(i)
}
