package processor

import (
	"reflect"
)

// mergeReflect overlays b onto a. Zero values in b count as unset, except
// behind a pointer to a non-struct, where the pointer being set is enough
// (this is how an explicit false is expressed). Maps are merged key by key.
func mergeReflect(t reflect.Type, a, b, out reflect.Value) {
	switch t.Kind() {
	case reflect.Struct:
		for _, f := range reflect.VisibleFields(t) {
			if !f.IsExported() || len(f.Index) > 1 {
				continue
			}
			mergeReflect(f.Type, a.FieldByIndex(f.Index), b.FieldByIndex(f.Index), out.FieldByIndex(f.Index))
		}
	case reflect.Pointer:
		if b.IsNil() {
			out.Set(a)
		} else if a.IsNil() || t.Elem().Kind() != reflect.Struct {
			out.Set(b)
		} else {
			out.Set(reflect.New(t.Elem()))
			mergeReflect(t.Elem(), a.Elem(), b.Elem(), out.Elem())
		}
	case reflect.Map:
		if a.IsNil() && b.IsNil() {
			return
		}
		m := reflect.MakeMap(t)
		for _, src := range []reflect.Value{a, b} {
			iter := src.MapRange()
			for iter.Next() {
				m.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		out.Set(m)
	default:
		if b.IsZero() {
			out.Set(a)
		} else {
			out.Set(b)
		}
	}
}

// Merge returns a with every field set in b replaced by b's value.
func Merge[T any](a T, b T) T {
	var out T
	mergeReflect(reflect.TypeOf((*T)(nil)).Elem(), reflect.ValueOf(a), reflect.ValueOf(b), reflect.ValueOf(&out).Elem())
	return out
}
