package sparkplugb

// DataType enumerates the Sparkplug B metric datatypes. The numeric values
// are the ones carried on the wire in the metric's datatype field.
type DataType uint32

const (
	DataType_Unknown         DataType = 0
	DataType_Int8            DataType = 1
	DataType_Int16           DataType = 2
	DataType_Int32           DataType = 3
	DataType_Int64           DataType = 4
	DataType_UInt8           DataType = 5
	DataType_UInt16          DataType = 6
	DataType_UInt32          DataType = 7
	DataType_UInt64          DataType = 8
	DataType_Float           DataType = 9
	DataType_Double          DataType = 10
	DataType_Boolean         DataType = 11
	DataType_String          DataType = 12
	DataType_DateTime        DataType = 13
	DataType_Text            DataType = 14
	DataType_UUID            DataType = 15
	DataType_DataSet         DataType = 16
	DataType_Bytes           DataType = 17
	DataType_File            DataType = 18
	DataType_Template        DataType = 19
	DataType_PropertySet     DataType = 20
	DataType_PropertySetList DataType = 21
)

var dataTypeNames = map[DataType]string{
	DataType_Unknown:         "Unknown",
	DataType_Int8:            "Int8",
	DataType_Int16:           "Int16",
	DataType_Int32:           "Int32",
	DataType_Int64:           "Int64",
	DataType_UInt8:           "UInt8",
	DataType_UInt16:          "UInt16",
	DataType_UInt32:          "UInt32",
	DataType_UInt64:          "UInt64",
	DataType_Float:           "Float",
	DataType_Double:          "Double",
	DataType_Boolean:         "Boolean",
	DataType_String:          "String",
	DataType_DateTime:        "DateTime",
	DataType_Text:            "Text",
	DataType_UUID:            "UUID",
	DataType_DataSet:         "DataSet",
	DataType_Bytes:           "Bytes",
	DataType_File:            "File",
	DataType_Template:        "Template",
	DataType_PropertySet:     "PropertySet",
	DataType_PropertySetList: "PropertySetList",
}

// Number returns the wire value of the datatype tag.
func (d DataType) Number() uint32 { return uint32(d) }

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "Unknown"
}
