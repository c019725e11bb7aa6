package jsfs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Value is a JavaScript value as seen by the host side of a GOOS=js program.
type Value struct {
	v interface{}
}

type null struct{}

// Undefined returns the JavaScript value "undefined".
func Undefined() Value {
	return Value{}
}

// Null returns the JavaScript value "null".
func Null() Value {
	return Value{v: null{}}
}

func (v Value) IsUndefined() bool {
	return v.v == nil
}

func (v Value) IsNull() bool {
	_, ok := v.v.(null)
	return ok
}

// Type represents the JavaScript type of a Value.
type Type int

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeObject
	TypeFunction
)

func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeFunction:
		return "function"
	default:
		panic("bad type")
	}
}

// Type returns the JavaScript type of v. Like typeof, except that null has its
// own type.
func (v Value) Type() Type {
	switch v.v.(type) {
	case nil:
		return TypeUndefined
	case null:
		return TypeNull
	case bool:
		return TypeBoolean
	case float64:
		return TypeNumber
	case string:
		return TypeString
	case Function:
		return TypeFunction
	case Object:
		return TypeObject
	default:
		panic(fmt.Errorf("unexpected value of type %T", v.v))
	}
}

// Float returns v as a float64. It panics if v is not a number.
func (v Value) Float() float64 {
	f, ok := v.v.(float64)
	if !ok {
		panic(fmt.Errorf("expected a number, got %v", v.Type()))
	}
	return f
}

// Int returns v truncated to an int. It panics if v is not a number.
func (v Value) Int() int {
	return int(v.Float())
}

// Bool returns v as a bool. It panics if v is not a boolean.
func (v Value) Bool() bool {
	b, ok := v.v.(bool)
	if !ok {
		panic(fmt.Errorf("expected a boolean, got %v", v.Type()))
	}
	return b
}

// Truthy returns the JavaScript truthiness of v.
func (v Value) Truthy() bool {
	switch x := v.v.(type) {
	case nil, null:
		return false
	case bool:
		return x
	case float64:
		return !math.IsNaN(x) && x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// String returns v as a string. Non-strings are rendered as "<T>" or "<T: V>".
func (v Value) String() string {
	switch x := v.v.(type) {
	case string:
		return x
	case bool:
		return fmt.Sprintf("<boolean: %v>", x)
	case float64:
		return fmt.Sprintf("<number: %v>", x)
	default:
		return "<" + v.Type().String() + ">"
	}
}

func (v Value) Object() (Object, bool) {
	o, ok := v.v.(Object)
	return o, ok
}

func (v Value) Function() (Function, bool) {
	f, ok := v.v.(Function)
	return f, ok
}

func (v Value) Array() ([]Value, bool) {
	a, ok := v.v.(*arrayObject)
	if !ok {
		return nil, false
	}
	return a.v, true
}

func (v Value) Uint8Array() ([]byte, bool) {
	a, ok := v.v.(*uint8ArrayObject)
	if !ok {
		return nil, false
	}
	return a.v, true
}

func (v Value) Get(property string) Value {
	if o, ok := v.Object(); ok {
		return o.Get(property)
	}
	return Undefined()
}

func (v Value) Set(property string, value Value) {
	if o, ok := v.Object(); ok {
		o.Set(property, value)
	}
}

// Index returns element i of an array or Uint8Array.
func (v Value) Index(i int) Value {
	return v.Get(strconv.Itoa(i))
}

// Length returns the length of an array or Uint8Array.
func (v Value) Length() int {
	switch x := v.v.(type) {
	case *arrayObject:
		return len(x.v)
	case *uint8ArrayObject:
		return len(x.v)
	case string:
		return len(x)
	default:
		return 0
	}
}

func (v Value) Call(method string, args []Value) (Value, error) {
	if o, ok := v.Object(); ok {
		return o.Call(method, args)
	}
	return Undefined(), fmt.Errorf("cannot call %v on %v", method, v.Type())
}

func (v Value) Invoke(args []Value) (Value, error) {
	if f, ok := v.Function(); ok {
		return f.Invoke(args)
	}
	return Undefined(), fmt.Errorf("%v is not a function", v.Type())
}

// ValueOf returns x as a JavaScript value:
//
//	| Go                            | JavaScript  |
//	| ----------------------------- | ----------- |
//	| Value                         | [its value] |
//	| Object, Function              | object      |
//	| nil                           | null        |
//	| bool                          | boolean     |
//	| integers and floats           | number      |
//	| string                        | string      |
//	| []Value, []string             | new array   |
//	| map[string]Value              | new object  |
//	| func([]Value) (Value, error)  | function    |
//	| []byte                        | Uint8Array  |
//	| error                         | Error       |
//
// Panics if x is not one of the expected types.
func ValueOf(x interface{}) Value {
	switch x := x.(type) {
	case Value:
		return x
	case Object:
		return Value{v: x}
	case nil:
		return Null()
	case bool:
		return Value{v: x}
	case int:
		return Value{v: float64(x)}
	case int32:
		return Value{v: float64(x)}
	case int64:
		return Value{v: float64(x)}
	case uint32:
		return Value{v: float64(x)}
	case uint64:
		return Value{v: float64(x)}
	case float64:
		return Value{v: x}
	case string:
		return Value{v: x}
	case []Value:
		return Value{v: &arrayObject{v: x}}
	case []string:
		elems := make([]Value, len(x))
		for i, s := range x {
			elems[i] = ValueOf(s)
		}
		return Value{v: &arrayObject{v: elems}}
	case map[string]Value:
		return Value{v: NewObject(x)}
	case func([]Value) (Value, error):
		return Value{v: FuncOf(x)}
	case []byte:
		return Value{v: &uint8ArrayObject{v: x}}
	case error:
		return Value{v: &errorObject{err: x}}
	default:
		panic(fmt.Errorf("ValueOf: invalid value of type %T", x))
	}
}

// Object is a JavaScript object.
type Object interface {
	Get(property string) Value
	Set(property string, value Value)
	Call(method string, args []Value) (Value, error)
}

// Function is a callable JavaScript object.
type Function interface {
	Object

	Invoke(args []Value) (Value, error)
}

type mapObject struct {
	props map[string]Value
}

// NewObject returns a plain object with the given properties.
func NewObject(properties map[string]Value) Object {
	if properties == nil {
		properties = map[string]Value{}
	}
	return &mapObject{props: properties}
}

func (o *mapObject) Get(property string) Value {
	return o.props[property]
}

func (o *mapObject) Set(property string, value Value) {
	o.props[property] = value
}

func (o *mapObject) Call(method string, args []Value) (Value, error) {
	return o.Get(method).Invoke(args)
}

type arrayObject struct {
	v []Value
}

func (o *arrayObject) index(property string) (int, bool) {
	i, err := strconv.Atoi(property)
	return i, err == nil && i >= 0 && i < len(o.v)
}

func (o *arrayObject) Get(property string) Value {
	if property == "length" {
		return ValueOf(len(o.v))
	}
	if i, ok := o.index(property); ok {
		return o.v[i]
	}
	return Undefined()
}

func (o *arrayObject) Set(property string, value Value) {
	if i, ok := o.index(property); ok {
		o.v[i] = value
	}
}

func (o *arrayObject) Call(method string, args []Value) (Value, error) {
	return o.Get(method).Invoke(args)
}

type uint8ArrayObject struct {
	v []byte
}

func (o *uint8ArrayObject) index(property string) (int, bool) {
	i, err := strconv.Atoi(property)
	return i, err == nil && i >= 0 && i < len(o.v)
}

func (o *uint8ArrayObject) Get(property string) Value {
	if property == "length" {
		return ValueOf(len(o.v))
	}
	if i, ok := o.index(property); ok {
		return ValueOf(int(o.v[i]))
	}
	return Undefined()
}

func (o *uint8ArrayObject) Set(property string, value Value) {
	if i, ok := o.index(property); ok {
		o.v[i] = byte(value.Int())
	}
}

func (o *uint8ArrayObject) Call(method string, args []Value) (Value, error) {
	return o.Get(method).Invoke(args)
}

type functionObject func(args []Value) (Value, error)

// FuncOf wraps f as a JavaScript function.
func FuncOf(f func(args []Value) (Value, error)) Function {
	return functionObject(f)
}

func (o functionObject) Get(property string) Value {
	return Undefined()
}

func (o functionObject) Set(property string, value Value) {
}

func (o functionObject) Call(method string, args []Value) (Value, error) {
	return Undefined(), fmt.Errorf("function has no method %v", method)
}

func (o functionObject) Invoke(args []Value) (Value, error) {
	return o(args)
}

// errorObject is an Error carrying the errno code the GOOS=js runtime maps to
// a syscall.Errno.
type errorObject struct {
	err error
}

func (o *errorObject) Get(property string) Value {
	switch property {
	case "message":
		return ValueOf(o.err.Error())
	case "code":
		if code := errorCode(o.err); code != "" {
			return ValueOf(code)
		}
	}
	return Undefined()
}

func (o *errorObject) Set(property string, value Value) {
}

func (o *errorObject) Call(method string, args []Value) (Value, error) {
	return Undefined(), fmt.Errorf("error has no method %v", method)
}

// Err returns the Go error carried by an Error value.
func (v Value) Err() (error, bool) {
	o, ok := v.v.(*errorObject)
	if !ok {
		return nil, false
	}
	return o.err, true
}

func newArray(args []Value) (Value, error) {
	if len(args) == 1 && args[0].Type() == TypeNumber {
		n := args[0].Int()
		if n < 0 || n > math.MaxInt32 {
			return Undefined(), errors.New("invalid array length")
		}
		elems := make([]Value, n)
		return ValueOf(elems), nil
	}
	return ValueOf(append([]Value(nil), args...)), nil
}

func newUint8Array(args []Value) (Value, error) {
	if len(args) == 1 && args[0].Type() == TypeNumber {
		n := args[0].Int()
		if n < 0 || n > math.MaxInt32 {
			return Undefined(), errors.New("invalid typed array length")
		}
		return ValueOf(make([]byte, n)), nil
	}
	return ValueOf([]byte{}), nil
}

func newObject(args []Value) (Value, error) {
	return ValueOf(NewObject(nil)), nil
}
