package crazyflie

// LogType enumerates the scalar wire kinds a log variable may be fetched
// as. Grounded on original_source/lttype.h's typeDex enum.
type LogType uint8

const (
	LogUint8   LogType = 0
	LogUint16  LogType = 1
	LogUint32  LogType = 2
	LogInt8    LogType = 3
	LogInt16   LogType = 4
	LogInt32   LogType = 5
	LogFloat16 LogType = 6
	LogFloat32 LogType = 7
	LogTypeNone LogType = 0xFF
)

// logTypeSize mirrors lttype.h's types[] size column.
var logTypeSize = map[LogType]int{
	LogUint8:   1,
	LogUint16:  2,
	LogUint32:  4,
	LogInt8:    1,
	LogInt16:   2,
	LogInt32:   4,
	LogFloat16: 2,
	LogFloat32: 4,
}

// Size returns the on-wire byte width of t, or 0 if t is not a known kind.
func (t LogType) Size() int { return logTypeSize[t] }

func (t LogType) String() string {
	switch t {
	case LogUint8:
		return "uint8"
	case LogUint16:
		return "uint16"
	case LogUint32:
		return "uint32"
	case LogInt8:
		return "int8"
	case LogInt16:
		return "int16"
	case LogInt32:
		return "int32"
	case LogFloat16:
		return "float16"
	case LogFloat32:
		return "float32"
	default:
		return "none"
	}
}

// unpackLogValue decodes raw wire bytes of kind t into a float64 so all
// log variables can share one value-cell representation (see log.go).
func unpackLogValue(t LogType, buf []byte) float64 {
	switch t {
	case LogUint8:
		return float64(getU8(buf))
	case LogUint16:
		return float64(getU16(buf))
	case LogUint32:
		return float64(getU32(buf))
	case LogInt8:
		return float64(getI8(buf))
	case LogInt16:
		return float64(getI16(buf))
	case LogInt32:
		return float64(getI32(buf))
	case LogFloat16:
		return float64(unpackFloat16(getU16(buf)))
	case LogFloat32:
		return float64(getF32(buf))
	default:
		return 0
	}
}
