// Package textprint prints values in human readable form, either as tables
// aligned on columns or as free form text.
package textprint

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
)

type encodeFunc func(io.Writer, reflect.Value) error

var (
	formatterType = reflect.TypeOf((*fmt.Formatter)(nil)).Elem()
	stringerType  = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

func encodeFuncOf(t reflect.Type) encodeFunc {
	switch {
	case t.Implements(formatterType):
		return encodeFormatter
	case t.Implements(stringerType):
		return encodeStringer
	}
	switch t.Kind() {
	case reflect.Bool:
		return encodeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return encodeInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return encodeUint
	case reflect.String:
		return encodeString
	case reflect.Pointer:
		return encodeFuncOfPointer(t.Elem())
	default:
		panic("cannot print values of type " + t.String() + " in a table")
	}
}

func encodeFuncOfPointer(t reflect.Type) encodeFunc {
	encode := encodeFuncOf(t)
	return func(w io.Writer, v reflect.Value) error {
		if v.IsNil() {
			_, err := io.WriteString(w, "-")
			return err
		}
		return encode(w, v.Elem())
	}
}

func encodeFuncOfStructField(t reflect.Type, index []int) encodeFunc {
	encode := encodeFuncOf(t)
	return func(w io.Writer, v reflect.Value) error {
		return encode(w, v.FieldByIndex(index))
	}
}

func encodeBool(w io.Writer, v reflect.Value) error {
	_, err := io.WriteString(w, strconv.FormatBool(v.Bool()))
	return err
}

func encodeInt(w io.Writer, v reflect.Value) error {
	_, err := io.WriteString(w, strconv.FormatInt(v.Int(), 10))
	return err
}

func encodeUint(w io.Writer, v reflect.Value) error {
	_, err := io.WriteString(w, strconv.FormatUint(v.Uint(), 10))
	return err
}

func encodeString(w io.Writer, v reflect.Value) error {
	_, err := io.WriteString(w, v.String())
	return err
}

func encodeStringer(w io.Writer, v reflect.Value) error {
	_, err := io.WriteString(w, v.Interface().(fmt.Stringer).String())
	return err
}

func encodeFormatter(w io.Writer, v reflect.Value) error {
	_, err := fmt.Fprintf(w, "%v", v.Interface())
	return err
}
