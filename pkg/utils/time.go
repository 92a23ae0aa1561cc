package utils

import (
	"time"
)

// Границы периодов для агрегации статистики сделок.
// Все расчеты в UTC, неделя начинается с понедельника (ISO 8601).

// PeriodType - период агрегации статистики
type PeriodType string

const (
	PeriodDay   PeriodType = "day"
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
	PeriodYear  PeriodType = "year"
	PeriodAll   PeriodType = "all"
)

// TimeRange - временной диапазон выборки
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains проверяет, попадает ли время в диапазон
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// GetPeriodRange возвращает диапазон периода, содержащего текущий момент
//
// PeriodAll дает диапазон от нулевого времени до сейчас. Неизвестный
// период трактуется как day.
func GetPeriodRange(period PeriodType) TimeRange {
	now := time.Now().UTC()

	switch period {
	case PeriodWeek:
		return TimeRange{Start: weekStart(now), End: now}
	case PeriodMonth:
		return TimeRange{Start: monthStart(now), End: now}
	case PeriodYear:
		return TimeRange{Start: yearStart(now), End: now}
	case PeriodAll:
		return TimeRange{End: now}
	default:
		return TimeRange{Start: dayStart(now), End: now}
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func weekStart(t time.Time) time.Time {
	// time.Weekday считает воскресенье нулем
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	return dayStart(monday)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
