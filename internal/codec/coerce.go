package codec

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Shared coercion helpers for FromValues: numeric strings convert to
// numbers, widened integers accept both int64/uint64 and big.Int, and
// everything else is rejected with a reason the caller wraps into a
// CoercionError.

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("overflows int64")
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("overflows int64")
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(x), nil
	case float32:
		return toInt64(float64(x))
	case *big.Int:
		if !x.IsInt64() {
			return 0, fmt.Errorf("overflows int64")
		}
		return x.Int64(), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err == nil {
			return n, nil
		}
		f, ferr := strconv.ParseFloat(x, 64)
		if ferr != nil {
			return 0, fmt.Errorf("not a number")
		}
		return toInt64(f)
	}
	return 0, fmt.Errorf("unsupported value kind")
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint:
		return uint64(x), nil
	case uint8:
		return uint64(x), nil
	case uint16:
		return uint64(x), nil
	case uint32:
		return uint64(x), nil
	case uint64:
		return x, nil
	case int, int8, int16, int32, int64:
		n, _ := toInt64(x)
		if n < 0 {
			return 0, fmt.Errorf("negative value for unsigned type")
		}
		return uint64(n), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fmt.Errorf("not an integer")
		}
		if x < 0 {
			return 0, fmt.Errorf("negative value for unsigned type")
		}
		return uint64(x), nil
	case float32:
		return toUint64(float64(x))
	case *big.Int:
		if x.Sign() < 0 {
			return 0, fmt.Errorf("negative value for unsigned type")
		}
		if !x.IsUint64() {
			return 0, fmt.Errorf("overflows uint64")
		}
		return x.Uint64(), nil
	case string:
		n, err := strconv.ParseUint(x, 10, 64)
		if err == nil {
			return n, nil
		}
		f, ferr := strconv.ParseFloat(x, 64)
		if ferr != nil {
			return 0, fmt.Errorf("not a number")
		}
		return toUint64(f)
	}
	return 0, fmt.Errorf("unsupported value kind")
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int, int8, int16, int32, int64:
		n, _ := toInt64(x)
		return float64(n), nil
	case uint, uint8, uint16, uint32, uint64:
		n, _ := toUint64(x)
		return float64(n), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported value kind")
}

func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case big.Int:
		return &x, nil
	case int, int8, int16, int32, int64:
		n, _ := toInt64(x)
		return big.NewInt(n), nil
	case uint, uint8, uint16, uint32, uint64:
		n, err := toUint64(x)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetUint64(n), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, fmt.Errorf("not an integer")
		}
		return big.NewInt(int64(x)), nil
	case string:
		n, ok := new(big.Int).SetString(x, 10)
		if !ok {
			return nil, fmt.Errorf("not an integer string")
		}
		return n, nil
	}
	return nil, fmt.Errorf("unsupported value kind")
}

func toBool(v any) (uint8, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case uint8:
		if x != 0 {
			return 1, nil
		}
		return 0, nil
	case int, int8, int16, int32, int64, uint, uint16, uint32, uint64:
		n, err := toInt64(x)
		if err != nil {
			return 0, err
		}
		if n != 0 {
			return 1, nil
		}
		return 0, nil
	case string:
		switch x {
		case "true", "1":
			return 1, nil
		case "false", "0":
			return 0, nil
		}
		return 0, fmt.Errorf("not a boolean string")
	}
	return 0, fmt.Errorf("unsupported value kind")
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return "", fmt.Errorf("unsupported value kind")
}

// checkInt verifies that n fits [min, max].
func checkInt(n, min, max int64) error {
	if n < min || n > max {
		return fmt.Errorf("out of range [%d, %d]", min, max)
	}
	return nil
}

// checkUint verifies that n fits [0, max].
func checkUint(n, max uint64) error {
	if n > max {
		return fmt.Errorf("out of range [0, %d]", max)
	}
	return nil
}

// fitsBits verifies v fits a two's-complement (signed) or plain
// (unsigned) integer of the given bit width.
func fitsBits(v *big.Int, bits int, signed bool) error {
	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		min := new(big.Int).Neg(limit)
		max := new(big.Int).Sub(limit, big.NewInt(1))
		if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
			return fmt.Errorf("overflows Int%d", bits)
		}
		return nil
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative value for unsigned type")
	}
	if v.BitLen() > bits {
		return fmt.Errorf("overflows UInt%d", bits)
	}
	return nil
}
