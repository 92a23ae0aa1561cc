package config

import "gridbot/internal/models"

// SeedGrids возвращает стартовый набор сеток
//
// Разворачивается при первом запуске, если таблица grids пуста.
// Диапазоны подобраны под боковик конца 2024 - начала 2025.
func SeedGrids() []*models.GridConfig {
	return []*models.GridConfig{
		{
			Symbol:       "BTCUSDT",
			LowerBound:   95500,
			UpperBound:   99000,
			LevelCount:   12,
			TotalCapital: 25000,
			StopLoss:     94800,
			Status:       models.GridStatusStopped,
		},
		{
			Symbol:       "MNTUSDT",
			LowerBound:   1.04,
			UpperBound:   1.12,
			LevelCount:   15,
			TotalCapital: 6000,
			StopLoss:     1.015,
			Status:       models.GridStatusStopped,
		},
		{
			Symbol:       "DOGEUSDT",
			LowerBound:   0.129,
			UpperBound:   0.145,
			LevelCount:   18,
			TotalCapital: 1500,
			StopLoss:     0.120,
			Status:       models.GridStatusStopped,
		},
		{
			Symbol:           "PEPEUSDT",
			LowerBound:       0.00000416,
			UpperBound:       0.00000479,
			LevelCount:       24,
			TotalCapital:     1500,
			StopLoss:         0.00000395,
			BTCFilterEnabled: true,
			Status:           models.GridStatusStopped,
		},
	}
}
