package schema

import (
	"reflect"
	"runtime"
	"sort"
)

// protocolMethods satisfy fmt and error interfaces rather than describing the model
var protocolMethods = map[string]bool{
	"String":   true,
	"GoString": true,
	"Format":   true,
	"Error":    true,
}

// MethodNames lists the exported methods a model prototype defines itself. The method set
// of the pointer type is read and methods promoted from embedded fields are dropped, since
// those belong to the embedded (parent) type. A promoted name the prototype redeclares is
// kept. Formatting methods such as String are never listed.
func MethodNames(proto interface{}) []string {
	if proto == nil {
		return nil
	}

	t := reflect.TypeOf(proto)
	if t.Kind() != reflect.Pointer {
		t = reflect.PointerTo(t)
	}

	promoted := make(map[string]bool)
	if elem := t.Elem(); elem.Kind() == reflect.Struct {
		for i := 0; i < elem.NumField(); i++ {
			field := elem.Field(i)
			if !field.Anonymous {
				continue
			}
			ft := field.Type
			if ft.Kind() != reflect.Interface && ft.Kind() != reflect.Pointer {
				ft = reflect.PointerTo(ft)
			}
			for j := 0; j < ft.NumMethod(); j++ {
				promoted[ft.Method(j).Name] = true
			}
		}
	}

	names := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		if protocolMethods[method.Name] || (promoted[method.Name] && !declared(t, method)) {
			continue
		}
		names = append(names, method.Name)
	}
	sort.Strings(names)
	return names
}

// declared reports whether the pointer type t, or its element type, has its own body for
// method. Promoted methods and pointer forwarders of value methods are compiler-generated
// wrappers.
func declared(t reflect.Type, method reflect.Method) bool {
	if hasBody(method.Func) {
		return true
	}
	if m, ok := t.Elem().MethodByName(method.Name); ok {
		return hasBody(m.Func)
	}
	return false
}

func hasBody(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}
	file, _ := f.FileLine(f.Entry())
	return file != "<autogenerated>"
}
