package wire

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

// This is a minimal XML-RPC envelope codec covering the value types the
// backend actually exchanges (int, boolean, double, string, array, struct,
// nil via empty string, base64). It intentionally does not attempt full
// XML-RPC spec coverage (dateTime.iso8601 arrives and leaves as a plain
// string, matching the specification's "date strings returned verbatim"
// normalization rule).

type xmlrpcMethodCall struct {
	XMLName    xml.Name       `xml:"methodCall"`
	MethodName string         `xml:"methodName"`
	Params     []xmlrpcParam  `xml:"params>param"`
}

type xmlrpcParam struct {
	Value xmlrpcValue `xml:"value"`
}

type xmlrpcMethodResponse struct {
	XMLName xml.Name      `xml:"methodResponse"`
	Params  []xmlrpcParam `xml:"params>param"`
	Fault   *xmlrpcFault  `xml:"fault"`
}

type xmlrpcFault struct {
	Value xmlrpcValue `xml:"value"`
}

type xmlrpcValue struct {
	Int      *string        `xml:"int"`
	I4       *string        `xml:"i4"`
	Boolean  *string        `xml:"boolean"`
	Double   *string        `xml:"double"`
	String   *string        `xml:"string"`
	DateTime *string        `xml:"dateTime.iso8601"`
	Base64   *string        `xml:"base64"`
	Array    *xmlrpcArray   `xml:"array"`
	Struct   *xmlrpcStruct  `xml:"struct"`
	Raw      string         `xml:",chardata"`
}

type xmlrpcArray struct {
	Values []xmlrpcValue `xml:"data>value"`
}

type xmlrpcStruct struct {
	Members []xmlrpcMember `xml:"member"`
}

type xmlrpcMember struct {
	Name  string      `xml:"name"`
	Value xmlrpcValue `xml:"value"`
}

// encodeCall builds an XML-RPC methodCall envelope for the given method and
// positional arguments.
func encodeCall(method string, args []interface{}) ([]byte, error) {
	call := xmlrpcMethodCall{MethodName: method}
	for _, a := range args {
		v, err := encodeValue(a)
		if err != nil {
			return nil, err
		}
		call.Params = append(call.Params, xmlrpcParam{Value: v})
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(call); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(v interface{}) (xmlrpcValue, error) {
	switch val := v.(type) {
	case nil:
		empty := ""
		return xmlrpcValue{String: &empty}, nil
	case bool:
		s := "0"
		if val {
			s = "1"
		}
		return xmlrpcValue{Boolean: &s}, nil
	case int:
		s := strconv.Itoa(val)
		return xmlrpcValue{Int: &s}, nil
	case int64:
		s := strconv.FormatInt(val, 10)
		return xmlrpcValue{Int: &s}, nil
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		return xmlrpcValue{Double: &s}, nil
	case string:
		return xmlrpcValue{String: &val}, nil
	case []interface{}:
		arr := &xmlrpcArray{}
		for _, item := range val {
			ev, err := encodeValue(item)
			if err != nil {
				return xmlrpcValue{}, err
			}
			arr.Values = append(arr.Values, ev)
		}
		return xmlrpcValue{Array: arr}, nil
	case map[string]interface{}:
		st := &xmlrpcStruct{}
		for k, item := range val {
			ev, err := encodeValue(item)
			if err != nil {
				return xmlrpcValue{}, err
			}
			st.Members = append(st.Members, xmlrpcMember{Name: k, Value: ev})
		}
		return xmlrpcValue{Struct: st}, nil
	default:
		return xmlrpcValue{}, fmt.Errorf("xmlrpc: unsupported value type %T", v)
	}
}

func decodeValue(v xmlrpcValue) (interface{}, error) {
	switch {
	case v.Int != nil:
		return strconv.ParseInt(*v.Int, 10, 32) // legacy XML-RPC integer width is 32-bit
	case v.I4 != nil:
		return strconv.ParseInt(*v.I4, 10, 32)
	case v.Boolean != nil:
		return *v.Boolean == "1", nil
	case v.Double != nil:
		return strconv.ParseFloat(*v.Double, 64)
	case v.String != nil:
		return *v.String, nil
	case v.DateTime != nil:
		return *v.DateTime, nil
	case v.Base64 != nil:
		return *v.Base64, nil
	case v.Array != nil:
		out := make([]interface{}, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			dv, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, dv)
		}
		return out, nil
	case v.Struct != nil:
		out := make(map[string]interface{}, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			dv, err := decodeValue(m.Value)
			if err != nil {
				return nil, err
			}
			out[m.Name] = dv
		}
		return out, nil
	default:
		// Bare chardata with no typed child is XML-RPC's implicit string.
		return v.Raw, nil
	}
}

// decodeResponse parses a methodResponse body, returning either the single
// result value or a fault (message + faultCode surfaced as an *rpcerr-shaped
// error by the caller).
func decodeResponse(body []byte) (interface{}, *xmlrpcFault, error) {
	var resp xmlrpcMethodResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, nil, err
	}
	if resp.Fault != nil {
		return nil, resp.Fault, nil
	}
	if len(resp.Params) == 0 {
		return nil, nil, fmt.Errorf("xmlrpc: empty response")
	}
	v, err := decodeValue(resp.Params[0].Value)
	return v, nil, err
}

// faultToFault turns a decoded XML-RPC fault into an *rpcerr.Fault, parsing
// faultString's Python traceback for the exception class name the same way
// legacy_json.go's jsonRPCErrorToFault parses the JSON adapter's debug
// field: Odoo's faultCode is just a numeric marker (always 1), never the
// exception class, so the class has to come out of the traceback text.
func faultToFault(f *xmlrpcFault) *rpcerr.Fault {
	v, err := decodeValue(f.Value)
	if err != nil {
		return &rpcerr.Fault{Message: "unknown XML-RPC fault"}
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return &rpcerr.Fault{Message: fmt.Sprintf("%v", v)}
	}
	msg, _ := m["faultString"].(string)
	if msg == "" {
		return &rpcerr.Fault{Message: "unknown XML-RPC fault"}
	}

	fault := rpcerr.ParseTraceback(msg)
	fault.Traceback = msg
	if fault.Message == "" {
		fault.Message = msg
	}
	return fault
}
