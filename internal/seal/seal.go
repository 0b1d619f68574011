// Package seal restricts who can implement cursor.Backend.
//
// Token lives in an internal package, so only code inside this module can
// name it and therefore only this module's backends can satisfy interfaces
// that require Sealed(Token). Embedding one of those backends in a type
// declared elsewhere still satisfies the interface, so the entry points
// that accept a backend also check where its type was declared with [Owned].
package seal

import (
	"reflect"
	"strings"
)

// Token is the argument of the sealing method.
type Token struct{}

// Marker is embedded by the backends shipped with this module.
type Marker struct{}

// Sealed implements the sealing method.
func (Marker) Sealed(Token) {}

// module is the import path of the module this package belongs to
var module = strings.TrimSuffix(reflect.TypeOf(Token{}).PkgPath(), "/internal/seal")

// Owned reports whether the dynamic type of v is declared in this module.
// Pointers are followed, unnamed types are never owned.
func Owned(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return false
	}

	pkg := t.PkgPath()
	return pkg == module || strings.HasPrefix(pkg, module+"/")
}
