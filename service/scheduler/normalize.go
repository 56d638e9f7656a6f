package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/FausT-VX/reminder-server/settings"
)

// ErrMalformedDateTime - дата или время задачи не удалось разобрать
var ErrMalformedDateTime = errors.New("malformed date/time value")

// Форматы времени в порядке попыток разбора
var clockFormats = []string{
	settings.TimeFormat,     // 15:04
	settings.TimeLongFormat, // 15:04:05
	"15:04:05.000000",
}

// Normalize собирает из разнородных представлений даты и времени единую
// отметку времени без часового пояса (используется time.Local).
//
//	dateVal — time.Time, строка "2006-01-02" либо ISO-строка даты-времени
//	timeVal — time.Time, time.Duration от полуночи либо строка "15:04[:05[.ffffff]]"
//
// Разные драйверы БД возвращают текстовые колонки по-разному,
// поэтому оба параметра принимаются как any
func Normalize(dateVal, timeVal any) (time.Time, error) {
	day, err := normalizeDate(dateVal)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := normalizeClock(timeVal)
	if err != nil {
		return time.Time{}, err
	}

	hh := int(clock / time.Hour)
	mm := int(clock % time.Hour / time.Minute)
	ss := int(clock % time.Minute / time.Second)
	ns := int(clock % time.Second)
	y, m, d := day.Date()
	return time.Date(y, m, d, hh, mm, ss, ns, time.Local), nil
}

// normalizeDate приводит значение даты к time.Time на полночь
func normalizeDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case []byte:
		return parseDateText(string(val))
	case string:
		return parseDateText(val)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported date value %v", ErrMalformedDateTime, v)
}

// parseDateText разбирает дату из текста: сначала формат 2006-01-02,
// затем дата-часть произвольной ISO-строки даты-времени
func parseDateText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if date, err := time.Parse(settings.DateFormat, s); err == nil {
		return date, nil
	}
	if len(s) > len(settings.DateFormat) {
		if date, err := time.Parse(settings.DateFormat, s[:len(settings.DateFormat)]); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad date %q", ErrMalformedDateTime, s)
}

// normalizeClock приводит значение времени суток к продолжительности от полуночи
// в пределах [0, 24h)
func normalizeClock(v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		// длительность от полуночи, возможно отрицательная или больше суток
		val %= 24 * time.Hour
		if val < 0 {
			val += 24 * time.Hour
		}
		return val, nil
	case time.Time:
		return time.Duration(val.Hour())*time.Hour +
			time.Duration(val.Minute())*time.Minute +
			time.Duration(val.Second())*time.Second, nil
	case []byte:
		return parseClockText(string(val))
	case string:
		return parseClockText(val)
	}
	return 0, fmt.Errorf("%w: unsupported time value %v", ErrMalformedDateTime, v)
}

// parseClockText разбирает время суток из текста, перебирая форматы clockFormats;
// если ни один не подошел, делит строку по двоеточиям вручную,
// нормализуя часы по модулю 24 и минуты по модулю 60
func parseClockText(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, format := range clockFormats {
		if clock, err := time.Parse(format, s); err == nil {
			return time.Duration(clock.Hour())*time.Hour +
				time.Duration(clock.Minute())*time.Minute +
				time.Duration(clock.Second())*time.Second, nil
		}
	}

	// ручной разбор для устойчивости к некорректному вводу
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: bad time %q", ErrMalformedDateTime, s)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrMalformedDateTime, s)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrMalformedDateTime, s)
	}
	ss := 0
	if len(parts) > 2 {
		// секунды необязательны, дробная часть отбрасывается
		secPart, _, _ := strings.Cut(parts[2], ".")
		if ss, err = strconv.Atoi(secPart); err != nil {
			ss = 0
		}
	}
	hh = ((hh % 24) + 24) % 24
	mm = ((mm % 60) + 60) % 60
	ss = ((ss % 60) + 60) % 60
	return time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second, nil
}
