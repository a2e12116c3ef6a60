package billingo

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fastjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errNotObject = errors.New("response body is not a json object")

// Result is the data member of a successful response envelope.
type Result struct {
	raw []byte
}

// Raw returns the JSON encoding of the data member. An absent or null data
// member yields "{}".
func (r *Result) Raw() []byte {
	if r == nil || len(r.raw) == 0 {
		return []byte("{}")
	}
	return r.raw
}

// Decode unmarshals the data member into v.
func (r *Result) Decode(v interface{}) error {
	return json.Unmarshal(r.Raw(), v)
}

// Map decodes the data member as a generic object. Non-object data yields an error.
func (r *Result) Map() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := r.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Empty reports whether the data member was absent, null, or an empty object or array.
func (r *Result) Empty() bool {
	switch string(r.Raw()) {
	case "{}", "[]", "null":
		return true
	}
	return false
}

func (r *Result) String() string {
	return string(r.Raw())
}

// envelope is the classified form of a response body.
type envelope struct {
	success bool
	message string
	data    []byte
}

// parseEnvelope decodes body as {success, data, error}. A body that is not valid
// JSON or is not an object fails with a *ResponseParseError.
func parseEnvelope(body []byte) (envelope, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return envelope{}, &ResponseParseError{Body: copyBytes(body), Err: err}
	}
	obj, err := v.Object()
	if err != nil {
		return envelope{}, &ResponseParseError{Body: copyBytes(body), Err: errNotObject}
	}

	env := envelope{
		success: truthy(obj.Get("success")),
		message: errorMessage(obj),
	}
	if data := obj.Get("data"); data != nil && data.Type() != fastjson.TypeNull {
		env.data = data.MarshalTo(nil)
	}
	return env, nil
}

// errorMessage reads "error", falling back to the legacy "msg" member.
func errorMessage(obj *fastjson.Object) string {
	for _, key := range [...]string{"error", "msg"} {
		v := obj.Get(key)
		if v == nil {
			continue
		}
		switch v.Type() {
		case fastjson.TypeNull:
			continue
		case fastjson.TypeString:
			if s := string(v.GetStringBytes()); s != "" {
				return s
			}
		default:
			return string(v.MarshalTo(nil))
		}
	}
	return ""
}

// truthy applies loose boolean semantics to the success flag.
func truthy(v *fastjson.Value) bool {
	if v == nil {
		return false
	}
	switch v.Type() {
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeNumber:
		return v.GetFloat64() != 0
	case fastjson.TypeString:
		switch string(v.GetStringBytes()) {
		case "", "0", "false":
			return false
		}
		return true
	case fastjson.TypeArray:
		return len(v.GetArray()) > 0
	case fastjson.TypeObject:
		o, _ := v.Object()
		return o != nil && o.Len() > 0
	default:
		return false
	}
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
