package model

import (
	"reflect"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Clone produces a fresh, unfitted estimator with the same hyperparameters as
// template. A search clones its template once per candidate evaluation so
// that fold trainings never share mutable state.
//
// Estimators implementing Cloner are asked directly. Otherwise the template
// must be a pointer to a struct; a zero value of the same type is allocated
// and configured with SetParams(template.GetParams()).
func Clone(template Estimator) (Estimator, error) {
	if cloner, ok := template.(Cloner); ok {
		return cloner.Clone(), nil
	}

	v := reflect.ValueOf(template)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, errors.NewValueError("Clone", "estimator template must be a non-nil pointer")
	}

	fresh, ok := reflect.New(v.Elem().Type()).Interface().(Estimator)
	if !ok {
		// A value receiver somewhere in the method set; cannot happen for
		// estimators in this module but guard anyway.
		return nil, errors.NewValueError("Clone", "cloned value does not implement Estimator")
	}

	if err := fresh.SetParams(template.GetParams()); err != nil {
		return nil, errors.Wrap(err, "Clone: restoring template parameters")
	}
	return fresh, nil
}
