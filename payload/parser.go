package payload

import (
	"time"

	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/sperr"
)

// Parsed is a read-only view over a decoded payload. It owns a copy of the
// backing bytes, so callers may reuse the buffer they handed to Parse.
type Parsed struct {
	raw     []byte
	payload sparkplugb.Payload
}

// Parse decodes b into a read-only payload view.
func Parse(b []byte) (*Parsed, error) {
	p := &Parsed{raw: append([]byte(nil), b...)}
	if err := sparkplugb.Unmarshal(p.raw, &p.payload); err != nil {
		return nil, sperr.Wrap(sperr.PayloadDecodeFailed, err, "decode payload")
	}
	return p, nil
}

// Bytes returns the backing wire bytes.
func (p *Parsed) Bytes() []byte { return p.raw }

// Payload returns the decoded wire model.
func (p *Parsed) Payload() *sparkplugb.Payload { return &p.payload }

// Timestamp returns the payload timestamp, if present.
func (p *Parsed) Timestamp() (uint64, bool) {
	if p.payload.Timestamp != nil {
		return *p.payload.Timestamp, true
	}
	return 0, false
}

// Seq returns the payload sequence number, if present.
func (p *Parsed) Seq() (uint64, bool) {
	if p.payload.Seq != nil {
		return *p.payload.Seq, true
	}
	return 0, false
}

// UUID returns the payload uuid, if present.
func (p *Parsed) UUID() (string, bool) {
	if p.payload.Uuid != nil {
		return *p.payload.Uuid, true
	}
	return "", false
}

// MetricCount returns the number of metrics in the payload.
func (p *Parsed) MetricCount() int { return len(p.payload.Metrics) }

// Metric returns an indexed metric view. Index must be in range.
func (p *Parsed) Metric(i int) Metric { return Metric{m: p.payload.Metrics[i]} }

// Metrics returns views over all metrics in payload order.
func (p *Parsed) Metrics() []Metric {
	out := make([]Metric, len(p.payload.Metrics))
	for i, m := range p.payload.Metrics {
		out[i] = Metric{m: m}
	}
	return out
}

// BdSeq extracts the value of the bdSeq metric, if the payload carries one.
func (p *Parsed) BdSeq() (uint64, bool) {
	return BdSeqOf(&p.payload)
}

// BdSeqOf extracts the bdSeq metric from a wire payload.
func BdSeqOf(p *sparkplugb.Payload) (uint64, bool) {
	for _, m := range p.GetMetrics() {
		if m.GetName() == BdSeqMetricName {
			return m.GetLongValue(), true
		}
	}
	return 0, false
}

// Metric is a read-only view over one metric.
type Metric struct {
	m *sparkplugb.Payload_Metric
}

// Name returns the metric name, if present.
func (m Metric) Name() (string, bool) {
	if m.m.Name != nil {
		return *m.m.Name, true
	}
	return "", false
}

// Alias returns the metric alias, if present.
func (m Metric) Alias() (uint64, bool) {
	if m.m.Alias != nil {
		return *m.m.Alias, true
	}
	return 0, false
}

// Timestamp returns the metric timestamp, if present.
func (m Metric) Timestamp() (uint64, bool) {
	if m.m.Timestamp != nil {
		return *m.m.Timestamp, true
	}
	return 0, false
}

// DataType returns the metric's datatype tag.
func (m Metric) DataType() sparkplugb.DataType {
	return sparkplugb.DataType(m.m.GetDatatype())
}

// IsNull reports whether the metric carries an explicit null.
func (m Metric) IsNull() bool { return m.m.GetIsNull() }

// IsHistorical reports whether the metric is flagged historical.
func (m Metric) IsHistorical() bool { return m.m.GetIsHistorical() }

// IsTransient reports whether the metric is flagged transient.
func (m Metric) IsTransient() bool { return m.m.GetIsTransient() }

// Wire returns the underlying wire metric.
func (m Metric) Wire() *sparkplugb.Payload_Metric { return m.m }

// Value returns the metric value as the Go type matching the datatype tag:
// int8..int64, uint8..uint64, float32, float64, bool, string, []byte,
// time.Time for DateTime, *sparkplugb.Payload_DataSet, or
// *sparkplugb.Payload_Template. Null metrics yield nil.
func (m Metric) Value() any {
	if m.IsNull() {
		return nil
	}
	switch m.DataType() {
	case sparkplugb.DataType_Int8:
		return int8(int32(m.m.GetIntValue()))
	case sparkplugb.DataType_Int16:
		return int16(int32(m.m.GetIntValue()))
	case sparkplugb.DataType_Int32:
		return int32(m.m.GetIntValue())
	case sparkplugb.DataType_Int64:
		return int64(m.m.GetLongValue())
	case sparkplugb.DataType_UInt8:
		return uint8(m.m.GetIntValue())
	case sparkplugb.DataType_UInt16:
		return uint16(m.m.GetIntValue())
	case sparkplugb.DataType_UInt32:
		return m.m.GetIntValue()
	case sparkplugb.DataType_UInt64:
		return m.m.GetLongValue()
	case sparkplugb.DataType_Float:
		return m.m.GetFloatValue()
	case sparkplugb.DataType_Double:
		return m.m.GetDoubleValue()
	case sparkplugb.DataType_Boolean:
		return m.m.GetBooleanValue()
	case sparkplugb.DataType_String, sparkplugb.DataType_Text, sparkplugb.DataType_UUID:
		return m.m.GetStringValue()
	case sparkplugb.DataType_DateTime:
		return time.UnixMilli(int64(m.m.GetLongValue())).UTC()
	case sparkplugb.DataType_Bytes, sparkplugb.DataType_File:
		return m.m.GetBytesValue()
	case sparkplugb.DataType_DataSet:
		return m.m.GetDatasetValue()
	case sparkplugb.DataType_Template:
		return m.m.GetTemplateValue()
	default:
		return nil
	}
}

// BoolValue returns the boolean slot; false when the metric is not Boolean.
func (m Metric) BoolValue() bool { return m.m.GetBooleanValue() }

// DoubleValue returns the double slot; 0 when the metric is not Double.
func (m Metric) DoubleValue() float64 { return m.m.GetDoubleValue() }
