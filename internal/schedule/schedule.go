// Package schedule вычисляет доступные для бронирования часовые слоты стримера.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/salda-id/booking-system/internal/model"
)

// Interval описывает занятый интервал времени существующего бронирования.
type Interval struct {
	Start time.Time
	End   time.Time
}

// HourIndex разбирает строку вида "HH:00" и возвращает номер часа.
func HourIndex(hour string) (int, bool) {
	if len(hour) != 5 || hour[2] != ':' || hour[3] != '0' || hour[4] != '0' {
		return 0, false
	}
	if hour[0] < '0' || hour[0] > '9' || hour[1] < '0' || hour[1] > '9' {
		return 0, false
	}
	h := int(hour[0]-'0')*10 + int(hour[1]-'0')
	if h > 23 {
		return 0, false
	}
	return h, true
}

// FormatHour возвращает строковое представление часа вида "HH:00".
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// AvailableHours возвращает упорядоченный список часов ("HH:00"), доступных
// для бронирования у стримера в указанную дату. Час попадает в результат,
// если он входит хотя бы в один интервал шаблона расписания на этот день
// недели и не пересекается ни с одним из занятых интервалов booked.
// Окно [windowStart, windowEnd) ограничивает перебор часами рабочего дня.
// Пустой шаблон на день недели даёт пустой результат.
func AvailableHours(tpl model.WeeklyTemplate, date time.Time, windowStart, windowEnd int, booked []Interval) []string {
	ranges := tpl[int(date.Weekday())]
	if len(ranges) == 0 {
		return nil
	}

	if windowStart < 0 {
		windowStart = 0
	}
	if windowEnd > 24 {
		windowEnd = 24
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	var hours []string
	for h := windowStart; h < windowEnd; h++ {
		if !inTemplate(ranges, h) {
			continue
		}

		slotStart := dayStart.Add(time.Duration(h) * time.Hour)
		slotEnd := slotStart.Add(time.Hour)
		if isBooked(booked, slotStart, slotEnd) {
			continue
		}

		hours = append(hours, FormatHour(h))
	}

	return hours
}

func inTemplate(ranges []model.HourRange, h int) bool {
	for _, r := range ranges {
		start, okStart := HourIndex(r.Start)
		end, okEnd := HourIndex(r.End)
		if !okStart || !okEnd {
			continue
		}
		if h >= start && h < end {
			return true
		}
	}
	return false
}

func isBooked(booked []Interval, slotStart, slotEnd time.Time) bool {
	for _, b := range booked {
		if b.Start.Before(slotEnd) && b.End.After(slotStart) {
			return true
		}
	}
	return false
}

// NormalizeSelection приводит выбор пользователя к единому непрерывному
// диапазону от минимального до максимального выбранного часа и заново
// фильтрует его по списку доступных часов. Недоступные часы внутри
// диапазона молча выбрасываются, ошибкой это не считается.
func NormalizeSelection(selected, available []string) []string {
	if len(selected) == 0 {
		return nil
	}

	minHour, maxHour := -1, -1
	for _, s := range selected {
		h, ok := HourIndex(s)
		if !ok {
			continue
		}
		if minHour == -1 || h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}
	}
	if minHour == -1 {
		return nil
	}

	availSet := make(map[int]struct{}, len(available))
	for _, a := range available {
		if h, ok := HourIndex(a); ok {
			availSet[h] = struct{}{}
		}
	}

	var res []string
	for h := minHour; h <= maxHour; h++ {
		if _, ok := availSet[h]; ok {
			res = append(res, FormatHour(h))
		}
	}

	sort.Strings(res)
	return res
}

// IsContiguous сообщает, образует ли выбор единый непрерывный диапазон часов.
func IsContiguous(hours []string) bool {
	if len(hours) <= 1 {
		return len(hours) == 1
	}
	prev, ok := HourIndex(hours[0])
	if !ok {
		return false
	}
	for _, s := range hours[1:] {
		h, ok := HourIndex(s)
		if !ok || h != prev+1 {
			return false
		}
		prev = h
	}
	return true
}
