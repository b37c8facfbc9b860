package owl

// Datatype is the local name of an XML Schema datatype.
type Datatype string

const (
	XSDString       Datatype = "string"
	XSDDate         Datatype = "date"
	XSDDateTime     Datatype = "dateTime"
	XSDBase64Binary Datatype = "base64Binary"
	XSDAnyURI       Datatype = "anyURI"
	XSDInteger      Datatype = "integer"
	XSDInt          Datatype = "int"
	XSDLong         Datatype = "long"
	XSDDecimal      Datatype = "decimal"
	XSDFloat        Datatype = "float"
	XSDDouble       Datatype = "double"
	XSDBoolean      Datatype = "boolean"
	XSDAnyType      Datatype = "anyType"
)

// CURIE returns the datatype in xsd-prefixed form.
func (d Datatype) CURIE() string {
	return "xsd:" + string(d)
}

// IRI returns the absolute datatype IRI.
func (d Datatype) IRI() string {
	return NamespaceXSD + string(d)
}

// MapType maps a JSON Schema primitive type and format to an XML Schema
// datatype. Unknown types map to xsd:string; a known type with an unknown
// format maps to the plain datatype of that type.
func MapType(typ, format string) Datatype {
	switch typ {
	case "string":
		return xsdStringType(format)
	case "integer":
		return xsdIntegerType(format)
	case "number":
		return xsdNumberType(format)
	case "boolean":
		return XSDBoolean
	case "object":
		return XSDAnyType
	default:
		return XSDString
	}
}

func xsdStringType(format string) Datatype {
	switch format {
	case "date":
		return XSDDate
	case "date-time":
		return XSDDateTime
	case "byte", "binary":
		return XSDBase64Binary
	case "uri":
		return XSDAnyURI
	default:
		// password, email, uuid and anything unrecognised
		return XSDString
	}
}

func xsdIntegerType(format string) Datatype {
	switch format {
	case "int32":
		return XSDInt
	case "int64":
		return XSDLong
	default:
		return XSDInteger
	}
}

func xsdNumberType(format string) Datatype {
	switch format {
	case "float":
		return XSDFloat
	case "double":
		return XSDDouble
	default:
		return XSDDecimal
	}
}
