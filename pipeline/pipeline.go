// Package pipeline chains transformers with a final estimator so the whole
// chain can be fitted, applied, and tuned as a single estimator.
package pipeline

import (
	"fmt"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// Transformer is a tunable preprocessing step: a transformation whose
// hyperparameters can be read and replaced for search.
type Transformer interface {
	model.Transformer
	model.ParameterGetter
	model.ParameterSetter
}

// Step is a named pipeline stage. Component must be a Transformer for every
// step except the last, which must be a model.Estimator.
type Step struct {
	Name      string
	Component interface{}
}

// Pipeline applies its transformer steps in order and delegates prediction
// to the final estimator. It satisfies model.Estimator itself, and its
// hyperparameters are the union of all step parameters under
// "<step>__<param>" names, so a search can tune any stage of the chain.
type Pipeline struct {
	model.BaseEstimator

	transformers []Step
	finalName    string
	estimator    model.Estimator
}

// NewPipeline builds a pipeline from named steps. At least one step is
// required and the last step must be a model.Estimator; the steps before it
// must be Transformers. Step names must be unique and must not contain
// "__", which is reserved for parameter routing.
func NewPipeline(steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, errors.NewValueError("NewPipeline", "at least one step is required")
	}

	seen := map[string]bool{}
	for _, step := range steps {
		if step.Name == "" {
			return nil, errors.NewValueError("NewPipeline", "step names must be non-empty")
		}
		if strings.Contains(step.Name, "__") {
			return nil, errors.NewValueError("NewPipeline",
				fmt.Sprintf("step name %q must not contain \"__\"", step.Name))
		}
		if seen[step.Name] {
			return nil, errors.NewValueError("NewPipeline",
				fmt.Sprintf("duplicate step name %q", step.Name))
		}
		seen[step.Name] = true
	}

	last := steps[len(steps)-1]
	estimator, ok := last.Component.(model.Estimator)
	if !ok {
		return nil, errors.NewValueError("NewPipeline",
			fmt.Sprintf("final step %q must be an estimator, got %T", last.Name, last.Component))
	}

	transformers := steps[:len(steps)-1]
	for _, step := range transformers {
		if _, ok := step.Component.(Transformer); !ok {
			return nil, errors.NewValueError("NewPipeline",
				fmt.Sprintf("step %q must be a transformer, got %T", step.Name, step.Component))
		}
	}

	return &Pipeline{
		transformers: transformers,
		finalName:    last.Name,
		estimator:    estimator,
	}, nil
}

// Estimator returns the final estimator of the chain.
func (p *Pipeline) Estimator() model.Estimator {
	return p.estimator
}

// Fit fits each transformer on the running output of its predecessors, then
// fits the final estimator on the fully transformed data.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	Xt := X
	for _, step := range p.transformers {
		transformer := step.Component.(Transformer)
		if err := transformer.Fit(Xt); err != nil {
			return errors.Wrapf(err, "pipeline step %q", step.Name)
		}
		out, err := transformer.Transform(Xt)
		if err != nil {
			return errors.Wrapf(err, "pipeline step %q", step.Name)
		}
		Xt = out
	}

	if err := p.estimator.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "pipeline step %q", p.finalName)
	}

	p.SetFitted()
	return nil
}

// transform runs X through the fitted transformer steps.
func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	for _, step := range p.transformers {
		out, err := step.Component.(Transformer).Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %q", step.Name)
		}
		Xt = out
	}
	return Xt, nil
}

// Predict transforms X and delegates to the final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.estimator.Predict(Xt)
}

// PredictProba transforms X and delegates to the final estimator, which
// must be a classifier.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !p.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "PredictProba")
	}
	clf, ok := p.estimator.(model.Classifier)
	if !ok {
		return nil, errors.NewValueError("Pipeline.PredictProba",
			fmt.Sprintf("final estimator %T is not a classifier", p.estimator))
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return clf.PredictProba(Xt)
}

// Score transforms X and delegates to the final estimator, which must
// implement model.Scorer.
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	if !p.IsFitted() {
		return 0, errors.NewNotFittedError("Pipeline", "Score")
	}
	scorer, ok := p.estimator.(model.Scorer)
	if !ok {
		return 0, errors.NewValueError("Pipeline.Score",
			fmt.Sprintf("final estimator %T has no score method", p.estimator))
	}
	Xt, err := p.transform(X)
	if err != nil {
		return 0, err
	}
	return scorer.Score(Xt, y)
}

// GetParams returns the union of every step's hyperparameters, each under
// its "<step>__<param>" name.
func (p *Pipeline) GetParams() map[string]interface{} {
	params := map[string]interface{}{}
	for _, step := range p.transformers {
		for key, value := range step.Component.(Transformer).GetParams() {
			params[step.Name+"__"+key] = value
		}
	}
	for key, value := range p.estimator.GetParams() {
		params[p.finalName+"__"+key] = value
	}
	return params
}

// SetParams routes each "<step>__<param>" entry to the named step.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		stepName, param, ok := strings.Cut(key, "__")
		if !ok {
			return fmt.Errorf("unknown parameter: %s", key)
		}

		target, err := p.step(stepName)
		if err != nil {
			return fmt.Errorf("unknown parameter: %s", key)
		}
		if err := target.SetParams(map[string]interface{}{param: value}); err != nil {
			return errors.Wrapf(err, "pipeline step %q", stepName)
		}
	}
	return nil
}

func (p *Pipeline) step(name string) (model.ParameterSetter, error) {
	if name == p.finalName {
		return p.estimator, nil
	}
	for _, step := range p.transformers {
		if step.Name == name {
			return step.Component.(Transformer), nil
		}
	}
	return nil, errors.Newf("no step named %q", name)
}

// Clone returns a fresh, unfitted pipeline with identical step structure
// and hyperparameters.
func (p *Pipeline) Clone() model.Estimator {
	steps := make([]Step, 0, len(p.transformers)+1)
	for _, step := range p.transformers {
		steps = append(steps, Step{Name: step.Name, Component: cloneTransformer(step.Component.(Transformer))})
	}

	final, err := model.Clone(p.estimator)
	if err != nil {
		// Estimators in this module always clone; surface a misuse loudly.
		panic(fmt.Sprintf("pipeline: cannot clone final estimator: %v", err))
	}
	steps = append(steps, Step{Name: p.finalName, Component: final})

	clone, err := NewPipeline(steps...)
	if err != nil {
		panic(fmt.Sprintf("pipeline: cannot rebuild validated steps: %v", err))
	}
	return clone
}

// cloneTransformer allocates a zero value of the same concrete type and
// restores the hyperparameters, mirroring model.Clone for transformers.
func cloneTransformer(t Transformer) Transformer {
	v := reflect.ValueOf(t)
	fresh := reflect.New(v.Elem().Type()).Interface().(Transformer)
	if err := fresh.SetParams(t.GetParams()); err != nil {
		panic(fmt.Sprintf("pipeline: cannot clone transformer %T: %v", t, err))
	}
	return fresh
}

// String returns the chain description.
func (p *Pipeline) String() string {
	names := make([]string, 0, len(p.transformers)+1)
	for _, step := range p.transformers {
		names = append(names, step.Name)
	}
	names = append(names, p.finalName)
	return fmt.Sprintf("Pipeline(%s)", strings.Join(names, " -> "))
}
