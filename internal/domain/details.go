package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Details là cột "details" của bảng log: có thể là JSON object hoặc chuỗi tự do.
// fields là dạng chuỗi để đọc, raw giữ nguyên giá trị JSON gốc để ghi ngược lại.
type Details struct {
	structured bool
	fields     map[string]string
	raw        map[string]json.RawMessage
	text       string
}

func Structured(fields map[string]string) Details {
	d := Details{
		structured: true,
		fields:     make(map[string]string, len(fields)),
		raw:        make(map[string]json.RawMessage, len(fields)),
	}
	for k, v := range fields {
		d.set(k, v)
	}
	return d
}

func Freeform(text string) Details {
	return Details{text: text}
}

// ParseDetails không bao giờ lỗi: JSON object -> Structured, còn lại -> Freeform.
func ParseDetails(raw string) Details {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Freeform(raw)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil || obj == nil {
		return Freeform(raw)
	}
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		fields[k] = stringify(v)
	}
	return Details{structured: true, fields: fields, raw: obj}
}

func stringify(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func (d *Details) set(key, value string) {
	d.fields[key] = value
	encoded, _ := json.Marshal(value)
	d.raw[key] = encoded
}

// With trả về bản sao có thêm key dạng chuỗi; các key khác giữ nguyên kiểu JSON gốc.
// Details dạng chuỗi tự do được chuyển thành object, chuỗi cũ nằm dưới key "message".
func (d Details) With(key, value string) Details {
	out := Details{
		structured: true,
		fields:     make(map[string]string, len(d.fields)+1),
		raw:        make(map[string]json.RawMessage, len(d.raw)+1),
	}
	if d.structured {
		for k, v := range d.fields {
			out.fields[k] = v
		}
		for k, v := range d.raw {
			out.raw[k] = v
		}
	} else if strings.TrimSpace(d.text) != "" {
		out.set(DetailMessage, d.text)
	}
	out.set(key, value)
	return out
}

func (d Details) IsStructured() bool { return d.structured }

// Empty: object không có key nào, hoặc chuỗi tự do rỗng.
func (d Details) Empty() bool {
	if d.structured {
		return len(d.raw) == 0
	}
	return strings.TrimSpace(d.text) == ""
}

// Get trả về giá trị của key; chỉ có nghĩa với Structured.
func (d Details) Get(key string) (string, bool) {
	if !d.structured {
		return "", false
	}
	v, ok := d.fields[key]
	return v, ok
}

// NonEmpty giống Get nhưng coi chuỗi rỗng/khoảng trắng là không có.
func (d Details) NonEmpty(key string) (string, bool) {
	v, ok := d.Get(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (d Details) Text() string { return d.text }

func (d Details) Fields() map[string]string {
	copied := make(map[string]string, len(d.fields))
	for k, v := range d.fields {
		copied[k] = v
	}
	return copied
}

// Encode trả về dạng lưu vào DB. Key của map được json sắp xếp nên kết quả ổn định.
func (d Details) Encode() string {
	if !d.structured {
		return d.text
	}
	b, err := json.Marshal(d.raw)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (d Details) MarshalJSON() ([]byte, error) {
	if d.structured {
		return json.Marshal(d.raw)
	}
	return json.Marshal(d.text)
}
