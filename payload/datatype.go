package payload

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/sperr"
)

// InferDataType maps a Go value to its Sparkplug datatype tag. Unsized
// integers pick the narrowest of Int32/Int64 (resp. UInt32/UInt64) that
// holds the value.
func InferDataType(value any) (sparkplugb.DataType, error) {
	dt, _, err := metricValue(value)
	return dt, err
}

// metricValue resolves both the datatype tag and the wire value slot for a
// Go value. Small integer types share the 32-bit int_value slot; 64-bit
// integers use long_value, per the Tahu schema.
func metricValue(value any) (sparkplugb.DataType, sparkplugb.MetricValue, error) {
	switch v := value.(type) {
	case int8:
		return sparkplugb.DataType_Int8, intSlot(int64(v)), nil
	case int16:
		return sparkplugb.DataType_Int16, intSlot(int64(v)), nil
	case int32:
		return sparkplugb.DataType_Int32, intSlot(int64(v)), nil
	case int64:
		return sparkplugb.DataType_Int64, longSlot(uint64(v)), nil
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return sparkplugb.DataType_Int32, intSlot(int64(v)), nil
		}
		return sparkplugb.DataType_Int64, longSlot(uint64(v)), nil
	case uint8:
		return sparkplugb.DataType_UInt8, uintSlot(uint32(v)), nil
	case uint16:
		return sparkplugb.DataType_UInt16, uintSlot(uint32(v)), nil
	case uint32:
		return sparkplugb.DataType_UInt32, uintSlot(v), nil
	case uint64:
		return sparkplugb.DataType_UInt64, longSlot(v), nil
	case uint:
		if v <= math.MaxUint32 {
			return sparkplugb.DataType_UInt32, uintSlot(uint32(v)), nil
		}
		return sparkplugb.DataType_UInt64, longSlot(uint64(v)), nil
	case float32:
		return sparkplugb.DataType_Float, &sparkplugb.Payload_Metric_FloatValue{FloatValue: v}, nil
	case float64:
		return sparkplugb.DataType_Double, &sparkplugb.Payload_Metric_DoubleValue{DoubleValue: v}, nil
	case bool:
		return sparkplugb.DataType_Boolean, &sparkplugb.Payload_Metric_BooleanValue{BooleanValue: v}, nil
	case string:
		return sparkplugb.DataType_String, &sparkplugb.Payload_Metric_StringValue{StringValue: v}, nil
	case []byte:
		return sparkplugb.DataType_Bytes, &sparkplugb.Payload_Metric_BytesValue{BytesValue: v}, nil
	case time.Time:
		return sparkplugb.DataType_DateTime, longSlot(uint64(v.UnixMilli())), nil
	case uuid.UUID:
		return sparkplugb.DataType_UUID, &sparkplugb.Payload_Metric_StringValue{StringValue: v.String()}, nil
	case *sparkplugb.Payload_DataSet:
		return sparkplugb.DataType_DataSet, &sparkplugb.Payload_Metric_DatasetValue{DatasetValue: v}, nil
	case *sparkplugb.Payload_Template:
		return sparkplugb.DataType_Template, &sparkplugb.Payload_Metric_TemplateValue{TemplateValue: v}, nil
	default:
		return sparkplugb.DataType_Unknown, nil, sperr.New(sperr.PreconditionViolated, "unsupported metric value type %T", value)
	}
}

// intSlot sign-extends small signed integers into the shared 32-bit slot.
func intSlot(v int64) *sparkplugb.Payload_Metric_IntValue {
	return &sparkplugb.Payload_Metric_IntValue{IntValue: uint32(int32(v))}
}

func uintSlot(v uint32) *sparkplugb.Payload_Metric_IntValue {
	return &sparkplugb.Payload_Metric_IntValue{IntValue: v}
}

func longSlot(v uint64) *sparkplugb.Payload_Metric_LongValue {
	return &sparkplugb.Payload_Metric_LongValue{LongValue: v}
}
