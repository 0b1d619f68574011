// Package sqlopt holds the settings of the database/sql backends.
//
// The settings that decide how errors are classified live here instead
// of in stdcursor, so that only the backends of this module can change them.
package sqlopt

import "github.com/stephenafamo/cursor"

// Options are the settings of a database/sql backend
type Options struct {
	Name     string
	BindType int
	Classify func(error) cursor.Kind
}

// WithClassifier replaces the default error classification
func WithClassifier(f func(error) cursor.Kind) func(*Options) {
	return func(o *Options) {
		o.Classify = f
	}
}
