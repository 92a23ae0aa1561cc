package models

import "time"

// PriceTick представляет один снимок цены инструмента
type PriceTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
	Volume24h float64   `json:"volume_24h,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Kline представляет одну свечу
type Kline struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"` // 1, 5, 15, 60, D
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}
