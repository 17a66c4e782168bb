package sparkplugb

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the org.eclipse.tahu.protobuf schema. The schema is
// proto2, so repeated scalar fields are encoded unpacked.
const (
	fPayloadTimestamp = 1
	fPayloadMetrics   = 2
	fPayloadSeq       = 3
	fPayloadUuid      = 4
	fPayloadBody      = 5

	fMetricName         = 1
	fMetricAlias        = 2
	fMetricTimestamp    = 3
	fMetricDatatype     = 4
	fMetricIsHistorical = 5
	fMetricIsTransient  = 6
	fMetricIsNull       = 7
	fMetricMetadata     = 8
	fMetricProperties   = 9
	fMetricIntValue     = 10
	fMetricLongValue    = 11
	fMetricFloatValue   = 12
	fMetricDoubleValue  = 13
	fMetricBooleanValue = 14
	fMetricStringValue  = 15
	fMetricBytesValue   = 16
	fMetricDatasetValue = 17
	fMetricTemplate     = 18
)

// Marshal serializes the payload into the Tahu wire format.
func Marshal(p *Payload) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil payload")
	}
	return appendPayload(nil, p)
}

// Unmarshal decodes b into p, replacing p's contents.
func Unmarshal(b []byte, p *Payload) error {
	if p == nil {
		return errors.New("nil payload")
	}
	*p = Payload{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fPayloadTimestamp:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			p.Timestamp = &v
			b = b[n:]
		case fPayloadMetrics:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			m := &Payload_Metric{}
			if err := unmarshalMetric(raw, m); err != nil {
				return err
			}
			p.Metrics = append(p.Metrics, m)
			b = b[n:]
		case fPayloadSeq:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			p.Seq = &v
			b = b[n:]
		case fPayloadUuid:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			s := string(raw)
			p.Uuid = &s
			b = b[n:]
		case fPayloadBody:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			p.Body = append([]byte(nil), raw...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func appendPayload(b []byte, p *Payload) ([]byte, error) {
	if p.Timestamp != nil {
		b = protowire.AppendTag(b, fPayloadTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, *p.Timestamp)
	}
	for _, m := range p.Metrics {
		if m == nil {
			continue
		}
		sub, err := appendMetric(nil, m)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fPayloadMetrics, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	if p.Seq != nil {
		b = protowire.AppendTag(b, fPayloadSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, *p.Seq)
	}
	if p.Uuid != nil {
		b = protowire.AppendTag(b, fPayloadUuid, protowire.BytesType)
		b = protowire.AppendString(b, *p.Uuid)
	}
	if p.Body != nil {
		b = protowire.AppendTag(b, fPayloadBody, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Body)
	}
	return b, nil
}

func appendMetric(b []byte, m *Payload_Metric) ([]byte, error) {
	if m.Name != nil {
		b = protowire.AppendTag(b, fMetricName, protowire.BytesType)
		b = protowire.AppendString(b, *m.Name)
	}
	if m.Alias != nil {
		b = protowire.AppendTag(b, fMetricAlias, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.Alias)
	}
	if m.Timestamp != nil {
		b = protowire.AppendTag(b, fMetricTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.Timestamp)
	}
	if m.Datatype != nil {
		b = protowire.AppendTag(b, fMetricDatatype, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.Datatype))
	}
	if m.IsHistorical != nil {
		b = appendBoolField(b, fMetricIsHistorical, *m.IsHistorical)
	}
	if m.IsTransient != nil {
		b = appendBoolField(b, fMetricIsTransient, *m.IsTransient)
	}
	if m.IsNull != nil {
		b = appendBoolField(b, fMetricIsNull, *m.IsNull)
	}
	if m.Metadata != nil {
		b = protowire.AppendTag(b, fMetricMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, appendMetaData(nil, m.Metadata))
	}
	if m.Properties != nil {
		sub, err := appendPropertySet(nil, m.Properties)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fMetricProperties, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	switch v := m.Value.(type) {
	case nil:
	case *Payload_Metric_IntValue:
		b = protowire.AppendTag(b, fMetricIntValue, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.IntValue))
	case *Payload_Metric_LongValue:
		b = protowire.AppendTag(b, fMetricLongValue, protowire.VarintType)
		b = protowire.AppendVarint(b, v.LongValue)
	case *Payload_Metric_FloatValue:
		b = protowire.AppendTag(b, fMetricFloatValue, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.FloatValue))
	case *Payload_Metric_DoubleValue:
		b = protowire.AppendTag(b, fMetricDoubleValue, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.DoubleValue))
	case *Payload_Metric_BooleanValue:
		b = appendBoolField(b, fMetricBooleanValue, v.BooleanValue)
	case *Payload_Metric_StringValue:
		b = protowire.AppendTag(b, fMetricStringValue, protowire.BytesType)
		b = protowire.AppendString(b, v.StringValue)
	case *Payload_Metric_BytesValue:
		b = protowire.AppendTag(b, fMetricBytesValue, protowire.BytesType)
		b = protowire.AppendBytes(b, v.BytesValue)
	case *Payload_Metric_DatasetValue:
		b = protowire.AppendTag(b, fMetricDatasetValue, protowire.BytesType)
		b = protowire.AppendBytes(b, appendDataSet(nil, v.DatasetValue))
	case *Payload_Metric_TemplateValue:
		sub, err := appendTemplate(nil, v.TemplateValue)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fMetricTemplate, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	default:
		return nil, fmt.Errorf("unsupported metric value %T", v)
	}
	return b, nil
}

func unmarshalMetric(b []byte, m *Payload_Metric) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fMetricName:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			s := string(raw)
			m.Name = &s
			b = b[n:]
		case fMetricAlias:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			m.Alias = &v
			b = b[n:]
		case fMetricTimestamp:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			m.Timestamp = &v
			b = b[n:]
		case fMetricDatatype:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			dt := uint32(v)
			m.Datatype = &dt
			b = b[n:]
		case fMetricIsHistorical:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			m.IsHistorical = &v
			b = b[n:]
		case fMetricIsTransient:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			m.IsTransient = &v
			b = b[n:]
		case fMetricIsNull:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			m.IsNull = &v
			b = b[n:]
		case fMetricMetadata:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			md := &Payload_MetaData{}
			if err := unmarshalMetaData(raw, md); err != nil {
				return err
			}
			m.Metadata = md
			b = b[n:]
		case fMetricProperties:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			ps := &Payload_PropertySet{}
			if err := unmarshalPropertySet(raw, ps); err != nil {
				return err
			}
			m.Properties = ps
			b = b[n:]
		case fMetricIntValue:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_IntValue{IntValue: uint32(v)}
			b = b[n:]
		case fMetricLongValue:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_LongValue{LongValue: v}
			b = b[n:]
		case fMetricFloatValue:
			v, n, err := consumeFixed32(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_FloatValue{FloatValue: math.Float32frombits(v)}
			b = b[n:]
		case fMetricDoubleValue:
			v, n, err := consumeFixed64(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_DoubleValue{DoubleValue: math.Float64frombits(v)}
			b = b[n:]
		case fMetricBooleanValue:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_BooleanValue{BooleanValue: v}
			b = b[n:]
		case fMetricStringValue:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_StringValue{StringValue: string(raw)}
			b = b[n:]
		case fMetricBytesValue:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			m.Value = &Payload_Metric_BytesValue{BytesValue: append([]byte(nil), raw...)}
			b = b[n:]
		case fMetricDatasetValue:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			ds := &Payload_DataSet{}
			if err := unmarshalDataSet(raw, ds); err != nil {
				return err
			}
			m.Value = &Payload_Metric_DatasetValue{DatasetValue: ds}
			b = b[n:]
		case fMetricTemplate:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			t := &Payload_Template{}
			if err := unmarshalTemplate(raw, t); err != nil {
				return err
			}
			m.Value = &Payload_Metric_TemplateValue{TemplateValue: t}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func appendMetaData(b []byte, md *Payload_MetaData) []byte {
	if md.IsMultiPart != nil {
		b = appendBoolField(b, 1, *md.IsMultiPart)
	}
	if md.ContentType != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, *md.ContentType)
	}
	if md.Size != nil {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, *md.Size)
	}
	if md.Seq != nil {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, *md.Seq)
	}
	if md.FileName != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, *md.FileName)
	}
	if md.FileType != nil {
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendString(b, *md.FileType)
	}
	if md.Md5 != nil {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendString(b, *md.Md5)
	}
	if md.Description != nil {
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendString(b, *md.Description)
	}
	return b
}

func unmarshalMetaData(b []byte, md *Payload_MetaData) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			md.IsMultiPart = &v
			b = b[n:]
		case 2, 5, 6, 7, 8:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			s := string(raw)
			switch num {
			case 2:
				md.ContentType = &s
			case 5:
				md.FileName = &s
			case 6:
				md.FileType = &s
			case 7:
				md.Md5 = &s
			case 8:
				md.Description = &s
			}
			b = b[n:]
		case 3:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			md.Size = &v
			b = b[n:]
		case 4:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			md.Seq = &v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func appendPropertySet(b []byte, ps *Payload_PropertySet) ([]byte, error) {
	for _, k := range ps.Keys {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	for _, v := range ps.Values {
		sub, err := appendPropertyValue(nil, v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return b, nil
}

func unmarshalPropertySet(b []byte, ps *Payload_PropertySet) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			ps.Keys = append(ps.Keys, string(raw))
			b = b[n:]
		case 2:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			pv := &Payload_PropertyValue{}
			if err := unmarshalPropertyValue(raw, pv); err != nil {
				return err
			}
			ps.Values = append(ps.Values, pv)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func appendPropertyValue(b []byte, pv *Payload_PropertyValue) ([]byte, error) {
	if pv.Type != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*pv.Type))
	}
	if pv.IsNull != nil {
		b = appendBoolField(b, 2, *pv.IsNull)
	}
	switch v := pv.Value.(type) {
	case nil:
	case *Payload_PropertyValue_IntValue:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.IntValue))
	case *Payload_PropertyValue_LongValue:
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, v.LongValue)
	case *Payload_PropertyValue_FloatValue:
		b = protowire.AppendTag(b, 5, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.FloatValue))
	case *Payload_PropertyValue_DoubleValue:
		b = protowire.AppendTag(b, 6, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.DoubleValue))
	case *Payload_PropertyValue_BooleanValue:
		b = appendBoolField(b, 7, v.BooleanValue)
	case *Payload_PropertyValue_StringValue:
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendString(b, v.StringValue)
	case *Payload_PropertyValue_PropertysetValue:
		sub, err := appendPropertySet(nil, v.PropertysetValue)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	case *Payload_PropertyValue_PropertysetsValue:
		var sub []byte
		for _, set := range v.PropertysetsValue.Propertyset {
			inner, err := appendPropertySet(nil, set)
			if err != nil {
				return nil, err
			}
			sub = protowire.AppendTag(sub, 1, protowire.BytesType)
			sub = protowire.AppendBytes(sub, inner)
		}
		b = protowire.AppendTag(b, 10, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	default:
		return nil, fmt.Errorf("unsupported property value %T", v)
	}
	return b, nil
}

func unmarshalPropertyValue(b []byte, pv *Payload_PropertyValue) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			t := uint32(v)
			pv.Type = &t
			b = b[n:]
		case 2:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			pv.IsNull = &v
			b = b[n:]
		case 3:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_IntValue{IntValue: uint32(v)}
			b = b[n:]
		case 4:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_LongValue{LongValue: v}
			b = b[n:]
		case 5:
			v, n, err := consumeFixed32(b, typ)
			if err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_FloatValue{FloatValue: math.Float32frombits(v)}
			b = b[n:]
		case 6:
			v, n, err := consumeFixed64(b, typ)
			if err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_DoubleValue{DoubleValue: math.Float64frombits(v)}
			b = b[n:]
		case 7:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_BooleanValue{BooleanValue: v}
			b = b[n:]
		case 8:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_StringValue{StringValue: string(raw)}
			b = b[n:]
		case 9:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			ps := &Payload_PropertySet{}
			if err := unmarshalPropertySet(raw, ps); err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_PropertysetValue{PropertysetValue: ps}
			b = b[n:]
		case 10:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			list := &Payload_PropertySetList{}
			if err := unmarshalPropertySetList(raw, list); err != nil {
				return err
			}
			pv.Value = &Payload_PropertyValue_PropertysetsValue{PropertysetsValue: list}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func unmarshalPropertySetList(b []byte, list *Payload_PropertySetList) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if num == 1 {
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			ps := &Payload_PropertySet{}
			if err := unmarshalPropertySet(raw, ps); err != nil {
				return err
			}
			list.Propertyset = append(list.Propertyset, ps)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func appendDataSet(b []byte, ds *Payload_DataSet) []byte {
	if ds.NumOfColumns != nil {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, *ds.NumOfColumns)
	}
	for _, c := range ds.Columns {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, c)
	}
	for _, t := range ds.Types {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t))
	}
	for _, r := range ds.Rows {
		var row []byte
		for _, e := range r.Elements {
			row = protowire.AppendTag(row, 1, protowire.BytesType)
			row = protowire.AppendBytes(row, appendDataSetValue(nil, e))
		}
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, row)
	}
	return b
}

func appendDataSetValue(b []byte, e *Payload_DataSet_DataSetValue) []byte {
	switch v := e.Value.(type) {
	case *Payload_DataSet_DataSetValue_IntValue:
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.IntValue))
	case *Payload_DataSet_DataSetValue_LongValue:
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, v.LongValue)
	case *Payload_DataSet_DataSetValue_FloatValue:
		b = protowire.AppendTag(b, 3, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.FloatValue))
	case *Payload_DataSet_DataSetValue_DoubleValue:
		b = protowire.AppendTag(b, 4, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.DoubleValue))
	case *Payload_DataSet_DataSetValue_BooleanValue:
		b = appendBoolField(b, 5, v.BooleanValue)
	case *Payload_DataSet_DataSetValue_StringValue:
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendString(b, v.StringValue)
	}
	return b
}

func unmarshalDataSet(b []byte, ds *Payload_DataSet) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			ds.NumOfColumns = &v
			b = b[n:]
		case 2:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			ds.Columns = append(ds.Columns, string(raw))
			b = b[n:]
		case 3:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			ds.Types = append(ds.Types, uint32(v))
			b = b[n:]
		case 4:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			row := &Payload_DataSet_Row{}
			if err := unmarshalDataSetRow(raw, row); err != nil {
				return err
			}
			ds.Rows = append(ds.Rows, row)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func unmarshalDataSetRow(b []byte, row *Payload_DataSet_Row) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if num == 1 {
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			e := &Payload_DataSet_DataSetValue{}
			if err := unmarshalDataSetValue(raw, e); err != nil {
				return err
			}
			row.Elements = append(row.Elements, e)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func unmarshalDataSetValue(b []byte, e *Payload_DataSet_DataSetValue) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			e.Value = &Payload_DataSet_DataSetValue_IntValue{IntValue: uint32(v)}
			b = b[n:]
		case 2:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			e.Value = &Payload_DataSet_DataSetValue_LongValue{LongValue: v}
			b = b[n:]
		case 3:
			v, n, err := consumeFixed32(b, typ)
			if err != nil {
				return err
			}
			e.Value = &Payload_DataSet_DataSetValue_FloatValue{FloatValue: math.Float32frombits(v)}
			b = b[n:]
		case 4:
			v, n, err := consumeFixed64(b, typ)
			if err != nil {
				return err
			}
			e.Value = &Payload_DataSet_DataSetValue_DoubleValue{DoubleValue: math.Float64frombits(v)}
			b = b[n:]
		case 5:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			e.Value = &Payload_DataSet_DataSetValue_BooleanValue{BooleanValue: v}
			b = b[n:]
		case 6:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			e.Value = &Payload_DataSet_DataSetValue_StringValue{StringValue: string(raw)}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func appendTemplate(b []byte, t *Payload_Template) ([]byte, error) {
	if t.Version != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, *t.Version)
	}
	for _, m := range t.Metrics {
		sub, err := appendMetric(nil, m)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	for _, p := range t.Parameters {
		sub, err := appendParameter(nil, p)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	if t.TemplateRef != nil {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, *t.TemplateRef)
	}
	if t.IsDefinition != nil {
		b = appendBoolField(b, 5, *t.IsDefinition)
	}
	return b, nil
}

func appendParameter(b []byte, p *Payload_Template_Parameter) ([]byte, error) {
	if p.Name != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, *p.Name)
	}
	if p.Type != nil {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*p.Type))
	}
	switch v := p.Value.(type) {
	case nil:
	case *Payload_Template_Parameter_IntValue:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.IntValue))
	case *Payload_Template_Parameter_LongValue:
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, v.LongValue)
	case *Payload_Template_Parameter_FloatValue:
		b = protowire.AppendTag(b, 5, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.FloatValue))
	case *Payload_Template_Parameter_DoubleValue:
		b = protowire.AppendTag(b, 6, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.DoubleValue))
	case *Payload_Template_Parameter_BooleanValue:
		b = appendBoolField(b, 7, v.BooleanValue)
	case *Payload_Template_Parameter_StringValue:
		b = protowire.AppendTag(b, 8, protowire.BytesType)
		b = protowire.AppendString(b, v.StringValue)
	default:
		return nil, fmt.Errorf("unsupported parameter value %T", v)
	}
	return b, nil
}

func unmarshalTemplate(b []byte, t *Payload_Template) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			s := string(raw)
			t.Version = &s
			b = b[n:]
		case 2:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			m := &Payload_Metric{}
			if err := unmarshalMetric(raw, m); err != nil {
				return err
			}
			t.Metrics = append(t.Metrics, m)
			b = b[n:]
		case 3:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			p := &Payload_Template_Parameter{}
			if err := unmarshalParameter(raw, p); err != nil {
				return err
			}
			t.Parameters = append(t.Parameters, p)
			b = b[n:]
		case 4:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			s := string(raw)
			t.TemplateRef = &s
			b = b[n:]
		case 5:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			t.IsDefinition = &v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func unmarshalParameter(b []byte, p *Payload_Template_Parameter) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			s := string(raw)
			p.Name = &s
			b = b[n:]
		case 2:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			t := uint32(v)
			p.Type = &t
			b = b[n:]
		case 3:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			p.Value = &Payload_Template_Parameter_IntValue{IntValue: uint32(v)}
			b = b[n:]
		case 4:
			v, n, err := consumeVarint(b, typ)
			if err != nil {
				return err
			}
			p.Value = &Payload_Template_Parameter_LongValue{LongValue: v}
			b = b[n:]
		case 5:
			v, n, err := consumeFixed32(b, typ)
			if err != nil {
				return err
			}
			p.Value = &Payload_Template_Parameter_FloatValue{FloatValue: math.Float32frombits(v)}
			b = b[n:]
		case 6:
			v, n, err := consumeFixed64(b, typ)
			if err != nil {
				return err
			}
			p.Value = &Payload_Template_Parameter_DoubleValue{DoubleValue: math.Float64frombits(v)}
			b = b[n:]
		case 7:
			v, n, err := consumeBool(b, typ)
			if err != nil {
				return err
			}
			p.Value = &Payload_Template_Parameter_BooleanValue{BooleanValue: v}
			b = b[n:]
		case 8:
			raw, n, err := consumeBytes(b, typ)
			if err != nil {
				return err
			}
			p.Value = &Payload_Template_Parameter_StringValue{StringValue: string(raw)}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	if v {
		return protowire.AppendVarint(b, 1)
	}
	return protowire.AppendVarint(b, 0)
}

func consumeBytes(b []byte, typ protowire.Type) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("unexpected wire type %v for length-delimited field", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeVarint(b []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("unexpected wire type %v for varint field", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBool(b []byte, typ protowire.Type) (bool, int, error) {
	v, n, err := consumeVarint(b, typ)
	return v != 0, n, err
}

func consumeFixed32(b []byte, typ protowire.Type) (uint32, int, error) {
	if typ != protowire.Fixed32Type {
		return 0, 0, fmt.Errorf("unexpected wire type %v for fixed32 field", typ)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeFixed64(b []byte, typ protowire.Type) (uint64, int, error) {
	if typ != protowire.Fixed64Type {
		return 0, 0, fmt.Errorf("unexpected wire type %v for fixed64 field", typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}
