package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"

	"github.com/ruteri/record-store/interfaces"
)

// Document is a schemaless record, used by the CLI and the HTTP server.
type Document = map[string]any

var errTrailingData = errors.New("unexpected data after the top-level value")

// JSON serializes records of type R as indented JSON.
//
// Numbers decoded into untyped positions (any, map[string]any, []any) come
// back as int when integral and float64 otherwise, so that a Document holding
// ints round-trips unchanged.
type JSON[R any] struct {
	indent string
}

// NewJSON creates a JSON serializer indenting with four spaces.
func NewJSON[R any]() *JSON[R] {
	return &JSON[R]{indent: "    "}
}

func (s *JSON[R]) Extension() string {
	return ".json"
}

func (s *JSON[R]) Serialize(record R) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", s.indent)
	if err != nil {
		return nil, &interfaces.FormatError{Format: "json", Err: err}
	}
	return data, nil
}

func (s *JSON[R]) Deserialize(data []byte) (R, error) {
	var record R

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&record); err != nil {
		var zero R
		return zero, &interfaces.FormatError{Format: "json", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var zero R
		return zero, &interfaces.FormatError{Format: "json", Err: errTrailingData}
	}

	normalizeNumbers(reflect.ValueOf(&record).Elem())
	return record, nil
}

// normalizeNumbers replaces every json.Number held in an interface within v.
// Typed json.Number fields are left alone.
func normalizeNumbers(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return
		}
		elem := v.Elem()
		if n, ok := elem.Interface().(json.Number); ok {
			if v.CanSet() {
				v.Set(reflect.ValueOf(numberValue(n)))
			}
			return
		}
		if !v.CanSet() {
			return
		}
		cp := reflect.New(elem.Type()).Elem()
		cp.Set(elem)
		normalizeNumbers(cp)
		v.Set(cp)

	case reflect.Pointer:
		if !v.IsNil() {
			normalizeNumbers(v.Elem())
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if f := v.Field(i); f.CanSet() {
				normalizeNumbers(f)
			}
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			normalizeNumbers(v.Index(i))
		}

	case reflect.Map:
		if v.IsNil() {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			val := reflect.New(v.Type().Elem()).Elem()
			val.Set(iter.Value())
			normalizeNumbers(val)
			v.SetMapIndex(iter.Key(), val)
		}
	}
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil && int64(int(i)) == i {
		return int(i)
	}
	f, _ := n.Float64()
	return f
}
