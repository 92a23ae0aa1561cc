package utils

import (
	"math"
)

// math.go - математические утилиты для grid-торговли
//
// Назначение:
// Вспомогательные математические функции для расчета сетки и рисков.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - RoundToPrecision: округление до N знаков (цены сетки - 8 знаков)
// - GridSpacing / GridPrices: геометрия сетки
// - MaxDeviationPct / Mean: волатильность по окну цен
// - DrawdownPct: просадка equity
// - RoundToLotSize: округление объема до шага биржи

// PricePrecision - количество знаков после запятой для цен уровней сетки
const PricePrecision = 8

// RoundToPrecision округляет значение до decimals знаков после запятой
//
// Примеры:
//   - RoundToPrecision(0.123456789, 8) = 0.12345679
//   - RoundToPrecision(97250.123, 2) = 97250.12
func RoundToPrecision(value float64, decimals int) float64 {
	if decimals < 0 {
		return value
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// GridSpacing возвращает шаг сетки между соседними уровнями
//
// Формула: (upper - lower) / levels
// Если параметры некорректны, возвращает 0
func GridSpacing(lower, upper float64, levels int) float64 {
	if levels <= 0 || upper <= lower {
		return 0
	}
	return (upper - lower) / float64(levels)
}

// GridPrices возвращает все цены сетки от lower до upper включительно
//
// Всего levels+1 цен с равным шагом, каждая округлена до 8 знаков.
// Уровни сетки строятся по всем ценам кроме верхней границы.
func GridPrices(lower, upper float64, levels int) []float64 {
	if levels <= 0 || upper <= lower {
		return nil
	}

	spacing := GridSpacing(lower, upper, levels)
	prices := make([]float64, levels+1)
	for i := 0; i <= levels; i++ {
		prices[i] = RoundToPrecision(lower+float64(i)*spacing, PricePrecision)
	}
	return prices
}

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Floor(value/lotSize) * lotSize
}

// Mean возвращает среднее арифметическое
// Пустой слайс дает 0
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MaxDeviationPct возвращает максимальное отклонение от среднего в процентах
//
// Формула: max(|p - mean| / mean) × 100
// Используется волатильным предохранителем.
// Если среднее <= 0, возвращает 0
func MaxDeviationPct(values []float64) float64 {
	mean := Mean(values)
	if mean <= 0 {
		return 0
	}

	var maxDev float64
	for _, v := range values {
		dev := math.Abs(v-mean) / mean * 100
		if dev > maxDev {
			maxDev = dev
		}
	}
	return maxDev
}

// DrawdownPct возвращает просадку equity в процентах
//
// Формула: (initial - current) / initial × 100
// Рост equity дает отрицательную просадку. Если initial <= 0, возвращает 0
func DrawdownPct(initial, current float64) float64 {
	if initial <= 0 {
		return 0
	}
	return (initial - current) / initial * 100
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
