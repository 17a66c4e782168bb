// Package sparkplugb holds the wire model of the Eclipse Tahu Sparkplug B
// payload (org.eclipse.tahu.protobuf.Payload) together with a binary codec
// that round-trips the schema. Optional scalar fields are pointers and the
// metric value is a oneof-style wrapper, so consumers can distinguish an
// absent field from a zero one, exactly as the protobuf schema does.
package sparkplugb

// Payload is the top-level Sparkplug B message.
type Payload struct {
	Timestamp *uint64
	Metrics   []*Payload_Metric
	Seq       *uint64
	Uuid      *string
	Body      []byte
}

func (p *Payload) GetTimestamp() uint64 {
	if p != nil && p.Timestamp != nil {
		return *p.Timestamp
	}
	return 0
}

func (p *Payload) GetSeq() uint64 {
	if p != nil && p.Seq != nil {
		return *p.Seq
	}
	return 0
}

func (p *Payload) GetUuid() string {
	if p != nil && p.Uuid != nil {
		return *p.Uuid
	}
	return ""
}

func (p *Payload) GetMetrics() []*Payload_Metric {
	if p != nil {
		return p.Metrics
	}
	return nil
}

// HasSeq reports whether the seq field is present on the wire.
func (p *Payload) HasSeq() bool { return p != nil && p.Seq != nil }

// Payload_Metric is a single metric entry.
type Payload_Metric struct {
	Name         *string
	Alias        *uint64
	Timestamp    *uint64
	Datatype     *uint32
	IsHistorical *bool
	IsTransient  *bool
	IsNull       *bool
	Metadata     *Payload_MetaData
	Properties   *Payload_PropertySet
	Value        MetricValue
}

func (m *Payload_Metric) GetName() string {
	if m != nil && m.Name != nil {
		return *m.Name
	}
	return ""
}

func (m *Payload_Metric) GetAlias() uint64 {
	if m != nil && m.Alias != nil {
		return *m.Alias
	}
	return 0
}

func (m *Payload_Metric) GetTimestamp() uint64 {
	if m != nil && m.Timestamp != nil {
		return *m.Timestamp
	}
	return 0
}

func (m *Payload_Metric) GetDatatype() uint32 {
	if m != nil && m.Datatype != nil {
		return *m.Datatype
	}
	return 0
}

func (m *Payload_Metric) GetIsHistorical() bool {
	if m != nil && m.IsHistorical != nil {
		return *m.IsHistorical
	}
	return false
}

func (m *Payload_Metric) GetIsTransient() bool {
	if m != nil && m.IsTransient != nil {
		return *m.IsTransient
	}
	return false
}

func (m *Payload_Metric) GetIsNull() bool {
	if m != nil && m.IsNull != nil {
		return *m.IsNull
	}
	return false
}

func (m *Payload_Metric) HasName() bool  { return m != nil && m.Name != nil }
func (m *Payload_Metric) HasAlias() bool { return m != nil && m.Alias != nil }

// MetricValue is the oneof wrapper for the metric value slot. Only the
// Payload_Metric_* value types in this package implement it.
type MetricValue interface{ isPayloadMetricValue() }

type Payload_Metric_IntValue struct{ IntValue uint32 }
type Payload_Metric_LongValue struct{ LongValue uint64 }
type Payload_Metric_FloatValue struct{ FloatValue float32 }
type Payload_Metric_DoubleValue struct{ DoubleValue float64 }
type Payload_Metric_BooleanValue struct{ BooleanValue bool }
type Payload_Metric_StringValue struct{ StringValue string }
type Payload_Metric_BytesValue struct{ BytesValue []byte }
type Payload_Metric_DatasetValue struct{ DatasetValue *Payload_DataSet }
type Payload_Metric_TemplateValue struct{ TemplateValue *Payload_Template }

func (*Payload_Metric_IntValue) isPayloadMetricValue()      {}
func (*Payload_Metric_LongValue) isPayloadMetricValue()     {}
func (*Payload_Metric_FloatValue) isPayloadMetricValue()    {}
func (*Payload_Metric_DoubleValue) isPayloadMetricValue()   {}
func (*Payload_Metric_BooleanValue) isPayloadMetricValue()  {}
func (*Payload_Metric_StringValue) isPayloadMetricValue()   {}
func (*Payload_Metric_BytesValue) isPayloadMetricValue()    {}
func (*Payload_Metric_DatasetValue) isPayloadMetricValue()  {}
func (*Payload_Metric_TemplateValue) isPayloadMetricValue() {}

func (m *Payload_Metric) GetIntValue() uint32 {
	if m == nil {
		return 0
	}
	if v, ok := m.Value.(*Payload_Metric_IntValue); ok {
		return v.IntValue
	}
	return 0
}

func (m *Payload_Metric) GetLongValue() uint64 {
	if m == nil {
		return 0
	}
	if v, ok := m.Value.(*Payload_Metric_LongValue); ok {
		return v.LongValue
	}
	return 0
}

func (m *Payload_Metric) GetFloatValue() float32 {
	if m == nil {
		return 0
	}
	if v, ok := m.Value.(*Payload_Metric_FloatValue); ok {
		return v.FloatValue
	}
	return 0
}

func (m *Payload_Metric) GetDoubleValue() float64 {
	if m == nil {
		return 0
	}
	if v, ok := m.Value.(*Payload_Metric_DoubleValue); ok {
		return v.DoubleValue
	}
	return 0
}

func (m *Payload_Metric) GetBooleanValue() bool {
	if m == nil {
		return false
	}
	if v, ok := m.Value.(*Payload_Metric_BooleanValue); ok {
		return v.BooleanValue
	}
	return false
}

func (m *Payload_Metric) GetStringValue() string {
	if m == nil {
		return ""
	}
	if v, ok := m.Value.(*Payload_Metric_StringValue); ok {
		return v.StringValue
	}
	return ""
}

func (m *Payload_Metric) GetBytesValue() []byte {
	if m == nil {
		return nil
	}
	if v, ok := m.Value.(*Payload_Metric_BytesValue); ok {
		return v.BytesValue
	}
	return nil
}

func (m *Payload_Metric) GetDatasetValue() *Payload_DataSet {
	if m == nil {
		return nil
	}
	if v, ok := m.Value.(*Payload_Metric_DatasetValue); ok {
		return v.DatasetValue
	}
	return nil
}

func (m *Payload_Metric) GetTemplateValue() *Payload_Template {
	if m == nil {
		return nil
	}
	if v, ok := m.Value.(*Payload_Metric_TemplateValue); ok {
		return v.TemplateValue
	}
	return nil
}

// Payload_MetaData carries file/multipart metadata attached to a metric.
type Payload_MetaData struct {
	IsMultiPart *bool
	ContentType *string
	Size        *uint64
	Seq         *uint64
	FileName    *string
	FileType    *string
	Md5         *string
	Description *string
}

// Payload_PropertySet is a keyed set of property values.
type Payload_PropertySet struct {
	Keys   []string
	Values []*Payload_PropertyValue
}

// Payload_PropertySetList is a list of property sets.
type Payload_PropertySetList struct {
	Propertyset []*Payload_PropertySet
}

// Payload_PropertyValue is a single typed property value.
type Payload_PropertyValue struct {
	Type   *uint32
	IsNull *bool
	Value  isPayload_PropertyValue_Value
}

type isPayload_PropertyValue_Value interface{ isPayloadPropertyValue() }

type Payload_PropertyValue_IntValue struct{ IntValue uint32 }
type Payload_PropertyValue_LongValue struct{ LongValue uint64 }
type Payload_PropertyValue_FloatValue struct{ FloatValue float32 }
type Payload_PropertyValue_DoubleValue struct{ DoubleValue float64 }
type Payload_PropertyValue_BooleanValue struct{ BooleanValue bool }
type Payload_PropertyValue_StringValue struct{ StringValue string }
type Payload_PropertyValue_PropertysetValue struct{ PropertysetValue *Payload_PropertySet }
type Payload_PropertyValue_PropertysetsValue struct{ PropertysetsValue *Payload_PropertySetList }

func (*Payload_PropertyValue_IntValue) isPayloadPropertyValue()          {}
func (*Payload_PropertyValue_LongValue) isPayloadPropertyValue()         {}
func (*Payload_PropertyValue_FloatValue) isPayloadPropertyValue()        {}
func (*Payload_PropertyValue_DoubleValue) isPayloadPropertyValue()       {}
func (*Payload_PropertyValue_BooleanValue) isPayloadPropertyValue()      {}
func (*Payload_PropertyValue_StringValue) isPayloadPropertyValue()       {}
func (*Payload_PropertyValue_PropertysetValue) isPayloadPropertyValue()  {}
func (*Payload_PropertyValue_PropertysetsValue) isPayloadPropertyValue() {}

// Payload_DataSet is a tabular value.
type Payload_DataSet struct {
	NumOfColumns *uint64
	Columns      []string
	Types        []uint32
	Rows         []*Payload_DataSet_Row
}

type Payload_DataSet_Row struct {
	Elements []*Payload_DataSet_DataSetValue
}

type Payload_DataSet_DataSetValue struct {
	Value isPayload_DataSet_DataSetValue_Value
}

type isPayload_DataSet_DataSetValue_Value interface{ isPayloadDataSetValue() }

type Payload_DataSet_DataSetValue_IntValue struct{ IntValue uint32 }
type Payload_DataSet_DataSetValue_LongValue struct{ LongValue uint64 }
type Payload_DataSet_DataSetValue_FloatValue struct{ FloatValue float32 }
type Payload_DataSet_DataSetValue_DoubleValue struct{ DoubleValue float64 }
type Payload_DataSet_DataSetValue_BooleanValue struct{ BooleanValue bool }
type Payload_DataSet_DataSetValue_StringValue struct{ StringValue string }

func (*Payload_DataSet_DataSetValue_IntValue) isPayloadDataSetValue()     {}
func (*Payload_DataSet_DataSetValue_LongValue) isPayloadDataSetValue()    {}
func (*Payload_DataSet_DataSetValue_FloatValue) isPayloadDataSetValue()   {}
func (*Payload_DataSet_DataSetValue_DoubleValue) isPayloadDataSetValue()  {}
func (*Payload_DataSet_DataSetValue_BooleanValue) isPayloadDataSetValue() {}
func (*Payload_DataSet_DataSetValue_StringValue) isPayloadDataSetValue()  {}

// Payload_Template is a template (UDT) value.
type Payload_Template struct {
	Version      *string
	Metrics      []*Payload_Metric
	Parameters   []*Payload_Template_Parameter
	TemplateRef  *string
	IsDefinition *bool
}

type Payload_Template_Parameter struct {
	Name  *string
	Type  *uint32
	Value isPayload_Template_Parameter_Value
}

type isPayload_Template_Parameter_Value interface{ isPayloadParameterValue() }

type Payload_Template_Parameter_IntValue struct{ IntValue uint32 }
type Payload_Template_Parameter_LongValue struct{ LongValue uint64 }
type Payload_Template_Parameter_FloatValue struct{ FloatValue float32 }
type Payload_Template_Parameter_DoubleValue struct{ DoubleValue float64 }
type Payload_Template_Parameter_BooleanValue struct{ BooleanValue bool }
type Payload_Template_Parameter_StringValue struct{ StringValue string }

func (*Payload_Template_Parameter_IntValue) isPayloadParameterValue()     {}
func (*Payload_Template_Parameter_LongValue) isPayloadParameterValue()    {}
func (*Payload_Template_Parameter_FloatValue) isPayloadParameterValue()   {}
func (*Payload_Template_Parameter_DoubleValue) isPayloadParameterValue()  {}
func (*Payload_Template_Parameter_BooleanValue) isPayloadParameterValue() {}
func (*Payload_Template_Parameter_StringValue) isPayloadParameterValue()  {}
