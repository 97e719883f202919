package mapper

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record 느슨한 서버 DTO (JSON object)
type Record map[string]any

// DecodeRecord JSON object 디코딩. 실패 시 빈 Record
func DecodeRecord(data []byte) Record {
	var rec Record
	if err := decode(data, &rec); err != nil || rec == nil {
		return Record{}
	}
	return rec
}

// DecodeRecords JSON array 디코딩. object 가 아닌 원소는 건너뜀
func DecodeRecords(data []byte) []Record {
	var raw []any
	if err := decode(data, &raw); err != nil {
		return nil
	}
	return toRecords(raw)
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func toRecords(raw []any) []Record {
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// lookup resolves a key; "a.b" descends into nested objects
func (r Record) lookup(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	head, rest, nested := strings.Cut(key, ".")
	v, ok := r[head]
	if !ok || v == nil {
		return nil, false
	}
	if !nested {
		return v, true
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m).lookup(rest)
}

// String 우선순위대로 첫 번째 비어있지 않은 문자열
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case json.Number:
			return s.String()
		}
	}
	return ""
}

// ID 식별자를 문자열로 (12.0 -> "12")
func (r Record) ID(keys ...string) string {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		if s := idString(v); s != "" {
			return s
		}
	}
	return ""
}

func idString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) {
			return strconv.FormatInt(int64(f), 10)
		}
		return n.String()
	case float64:
		if n == math.Trunc(n) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// Int64 우선순위대로 첫 번째 숫자 값, 없으면 0
func (r Record) Int64(keys ...string) int64 {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		if n, ok := toInt64(v); ok {
			return n
		}
	}
	return 0
}

// Int 는 Int64 의 int 버전
func (r Record) Int(keys ...string) int {
	return int(r.Int64(keys...))
}

// Count 음수를 0으로 보정한 카운터
func (r Record) Count(keys ...string) int {
	n := r.Int(keys...)
	if n < 0 {
		return 0
	}
	return n
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Bool 우선순위대로 첫 번째 bool 값, 없으면 false
func (r Record) Bool(keys ...string) bool {
	for _, k := range keys {
		v, ok := r.lookup(k)
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			if parsed, err := strconv.ParseBool(b); err == nil {
				return parsed
			}
		}
	}
	return false
}

// HasBool reports whether any key holds a boolean
func (r Record) HasBool(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r.lookup(k); ok {
			if _, isBool := v.(bool); isBool {
				return true
			}
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time RFC3339 또는 LocalDateTime 문자열. 파싱 실패 시 zero time
func (r Record) Time(keys ...string) time.Time {
	for _, k := range keys {
		s := r.String(k)
		if s == "" {
			continue
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// Child 중첩 object. 없으면 nil
func (r Record) Child(key string) Record {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return Record(m)
	}
	return nil
}

// Children 중첩 object 배열
func (r Record) Children(key string) []Record {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	return toRecords(items)
}

// Strings 문자열 배열. {name} object 원소는 name 을 사용
func (r Record) Strings(key string) ([]string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case map[string]any:
			if name := Record(s).String("name"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out, true
}
