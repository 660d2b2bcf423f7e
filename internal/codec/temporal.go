package codec

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"chnative/internal/chtype"
	"chnative/internal/column"
)

// Date is stored as days since epoch in a UInt16, Date32 as a signed
// 32-bit day count, DateTime as seconds since epoch in a UInt32, and
// DateTime64(p) as signed ticks of 10^-p seconds in an Int64.

const secondsPerDay = 86400

func dateConv(v uint16, _ *column.Opts) any {
	return time.Unix(int64(v)*secondsPerDay, 0).UTC()
}

func date32Conv(v int32, _ *column.Opts) any {
	return time.Unix(int64(v)*secondsPerDay, 0).UTC()
}

func dateTimeConv(v uint32, _ *column.Opts) any {
	return time.Unix(int64(v), 0).UTC()
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

func parseTemporal(s string) (time.Time, error) {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time string")
}

func coerceDays(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Unix() / secondsPerDay, nil
	case string:
		t, err := parseTemporal(x)
		if err != nil {
			n, nerr := toInt64(x)
			if nerr != nil {
				return 0, err
			}
			return n, nil
		}
		return t.Unix() / secondsPerDay, nil
	default:
		return toInt64(v)
	}
}

func coerceSeconds(v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Unix(), nil
	case string:
		t, err := parseTemporal(x)
		if err != nil {
			n, nerr := toInt64(x)
			if nerr != nil {
				return 0, err
			}
			return n, nil
		}
		return t.Unix(), nil
	default:
		return toInt64(v)
	}
}

func newDateCodec(t chtype.Type) Codec {
	return newFixed[uint16](t, dateConv, func(v any) (uint16, error) {
		d, err := coerceDays(v)
		if err != nil {
			return 0, err
		}
		if err := checkInt(d, 0, math.MaxUint16); err != nil {
			return 0, err
		}
		return uint16(d), nil
	}, time.Unix(0, 0).UTC())
}

func newDate32Codec(t chtype.Type) Codec {
	return newFixed[int32](t, date32Conv, func(v any) (int32, error) {
		d, err := coerceDays(v)
		if err != nil {
			return 0, err
		}
		if err := checkInt(d, math.MinInt32, math.MaxInt32); err != nil {
			return 0, err
		}
		return int32(d), nil
	}, time.Unix(0, 0).UTC())
}

func newDateTimeCodec(t chtype.Type) Codec {
	return newFixed[uint32](t, dateTimeConv, func(v any) (uint32, error) {
		s, err := coerceSeconds(v)
		if err != nil {
			return 0, err
		}
		if err := checkInt(s, 0, math.MaxUint32); err != nil {
			return 0, err
		}
		return uint32(s), nil
	}, time.Unix(0, 0).UTC())
}

// newDateTime64Codec builds the codec for DateTime64(p[, tz]). The tick
// count is carried through materialization untouched; only the wrapper
// knows the precision.
func newDateTime64Codec(t chtype.Type) (Codec, error) {
	if len(t.Params) == 0 {
		return nil, fmt.Errorf("DateTime64 requires a precision parameter")
	}
	p, err := strconv.Atoi(t.Params[0])
	if err != nil || p < 0 || p > 9 {
		return nil, fmt.Errorf("DateTime64: invalid precision %q", t.Params[0])
	}
	scale := int64(1)
	for i := 0; i < p; i++ {
		scale *= 10
	}
	conv := func(v int64, _ *column.Opts) any {
		return column.DateTime64Value{Ticks: v, Precision: p}
	}
	coerce := func(v any) (int64, error) {
		switch x := v.(type) {
		case column.DateTime64Value:
			if x.Precision != p {
				return rescaleTicks(x.Ticks, x.Precision, p), nil
			}
			return x.Ticks, nil
		case time.Time:
			return x.Unix()*scale + int64(x.Nanosecond())/(1e9/scale), nil
		case string:
			tm, err := parseTemporal(x)
			if err != nil {
				return toInt64(x)
			}
			return tm.Unix()*scale + int64(tm.Nanosecond())/(1e9/scale), nil
		default:
			return toInt64(v)
		}
	}
	return newFixed[int64](t, conv, coerce, column.DateTime64Value{Precision: p}), nil
}

func rescaleTicks(ticks int64, from, to int) int64 {
	for from < to {
		ticks *= 10
		from++
	}
	for from > to {
		ticks /= 10
		from--
	}
	return ticks
}
