package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/salda-id/booking-system/internal/repository"
	"github.com/salda-id/booking-system/internal/schedule"
)

// DateLayout — формат даты в параметрах запросов доступности.
const DateLayout = "2006-01-02"

// AvailableSlots возвращает доступные для бронирования часы стримера на
// указанную дату в пределах окна [windowFrom, windowTo). Ошибки получения
// расписания или бронирований не всплывают наружу: в этом случае слоты не
// предлагаются вовсе (fail-closed).
func (s *Service) AvailableSlots(ctx context.Context, streamerID int64, date string, windowFrom, windowTo int) ([]string, error) {
	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, date)
	}
	if windowFrom < 0 || windowTo > 24 || windowFrom >= windowTo {
		return nil, fmt.Errorf("%w: malformed hour window %d-%d", ErrInvalidInput, windowFrom, windowTo)
	}

	if s.cache != nil {
		if hours, ok := s.cache.Get(ctx, streamerID, date, windowFrom, windowTo); ok {
			return hours, nil
		}
	}

	hours, ok := s.computeAvailableSlots(ctx, streamerID, day, windowFrom, windowTo)

	// Пустой результат из-за сбоя бэкенда не кэшируется: иначе временная
	// ошибка закрепила бы "нет слотов" на весь срок жизни снимка.
	if s.cache != nil && ok {
		s.cache.Set(ctx, streamerID, date, windowFrom, windowTo, hours)
	}

	return hours, nil
}

// computeAvailableSlots возвращает доступные часы и признак того, что
// результат получен без ошибок и пригоден для кэширования. Отсутствие
// опубликованного расписания — обычное состояние, а не сбой.
func (s *Service) computeAvailableSlots(ctx context.Context, streamerID int64, day time.Time, windowFrom, windowTo int) ([]string, bool) {
	tpl, err := s.repo.GetScheduleTemplate(ctx, streamerID)
	if err != nil {
		if errors.Is(err, repository.ErrScheduleNotFound) {
			return nil, true
		}
		s.logger.Warn("schedule fetch failed, offering no slots",
			zap.Int64("streamerID", streamerID), zap.Error(err))
		return nil, false
	}

	dayEnd := day.Add(24 * time.Hour)
	bookings, err := s.repo.GetBlockingBookings(ctx, streamerID, day, dayEnd)
	if err != nil {
		s.logger.Warn("bookings fetch failed, offering no slots",
			zap.Int64("streamerID", streamerID), zap.Error(err))
		return nil, false
	}

	booked := make([]schedule.Interval, 0, len(bookings))
	for _, b := range bookings {
		booked = append(booked, schedule.Interval{Start: b.StartTime.In(s.loc), End: b.EndTime.In(s.loc)})
	}

	return schedule.AvailableHours(tpl, day, windowFrom, windowTo, booked), true
}

// NormalizeSelection приводит пользовательский выбор часов к непрерывному
// диапазону, отфильтрованному по текущей доступности (см. schedule.NormalizeSelection).
func (s *Service) NormalizeSelection(ctx context.Context, streamerID int64, date string, selected []string) ([]string, error) {
	available, err := s.AvailableSlots(ctx, streamerID, date, 0, 24)
	if err != nil {
		return nil, err
	}
	return schedule.NormalizeSelection(selected, available), nil
}
