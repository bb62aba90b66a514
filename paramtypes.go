package crazyflie

// ParamType enumerates the scalar wire kinds a parameter value may take.
// Grounded on original_source/pttype.h's ptTypeDex enum; ordinals match
// the firmware's wire numbering exactly (fp8/fp16 sit between the signed
// integer kinds and float32/float64, with the unsigned integers last).
type ParamType uint8

const (
	ParamInt8    ParamType = 0
	ParamInt16   ParamType = 1
	ParamInt32   ParamType = 2
	ParamInt64   ParamType = 3
	ParamFP8     ParamType = 4
	ParamFP16    ParamType = 5
	ParamFloat32 ParamType = 6
	ParamFloat64 ParamType = 7
	ParamUint8   ParamType = 8
	ParamUint16  ParamType = 9
	ParamUint32  ParamType = 10
	ParamUint64  ParamType = 11

	ParamTypeNone ParamType = 0xFF
)

var paramTypeSize = map[ParamType]int{
	ParamInt8:    1,
	ParamInt16:   2,
	ParamInt32:   4,
	ParamInt64:   8,
	ParamFP8:     1,
	ParamFP16:    2,
	ParamFloat32: 4,
	ParamFloat64: 8,
	ParamUint8:   1,
	ParamUint16:  2,
	ParamUint32:  4,
	ParamUint64:  8,
}

// Size returns the on-wire byte width of t, or 0 if unknown.
func (t ParamType) Size() int { return paramTypeSize[t] }

// ReadOnlyBit is folded into a parameter TOC element's ctype byte
// (ctype_byte & 0x10) per spec.md §4.3; the type itself occupies the low
// nibble (0..11 fits in 4 bits), so it must never be masked together with
// this bit.
const ReadOnlyBit uint8 = 0x10

// paramTypeMask extracts the type ordinal from a ctype byte, excluding
// ReadOnlyBit and any higher reserved bits.
const paramTypeMask uint8 = 0x0F

// ExtendedPersistentBit marks a parameter as persistent in the firmware's
// extended-attribute response.
const ExtendedPersistentBit uint8 = 0x01

func unpackParamValue(t ParamType, buf []byte) float64 {
	switch t {
	case ParamInt8:
		return float64(getI8(buf))
	case ParamInt16:
		return float64(getI16(buf))
	case ParamInt32:
		return float64(getI32(buf))
	case ParamInt64:
		return float64(int64(getU64(buf)))
	case ParamFP8:
		return float64(unpackFloat8(buf[0]))
	case ParamFP16:
		return float64(unpackFloat16(getU16(buf)))
	case ParamFloat32:
		return float64(getF32(buf))
	case ParamFloat64:
		return float64frombits(getU64(buf))
	case ParamUint8:
		return float64(getU8(buf))
	case ParamUint16:
		return float64(getU16(buf))
	case ParamUint32:
		return float64(getU32(buf))
	case ParamUint64:
		return float64(getU64(buf))
	default:
		return 0
	}
}

func packParamValue(t ParamType, v float64, buf []byte) []byte {
	switch t {
	case ParamInt8:
		return putI8(buf, int8(v))
	case ParamInt16:
		return putI16(buf, int16(v))
	case ParamInt32:
		return putI32(buf, int32(v))
	case ParamInt64:
		return putU64(buf, uint64(int64(v)))
	case ParamFP8:
		return putU8(buf, packFloat8(float32(v)))
	case ParamFP16:
		return putU16(buf, packFloat16(float32(v)))
	case ParamFloat32:
		return putF32(buf, float32(v))
	case ParamFloat64:
		return putU64(buf, float64bits(v))
	case ParamUint8:
		return putU8(buf, uint8(v))
	case ParamUint16:
		return putU16(buf, uint16(v))
	case ParamUint32:
		return putU32(buf, uint32(v))
	case ParamUint64:
		return putU64(buf, uint64(v))
	default:
		return buf
	}
}
