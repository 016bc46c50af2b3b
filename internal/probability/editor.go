package probability

// Editor holds the current vector for one editing session together with the
// baseline it was started from. It is not safe for concurrent use; callers
// serialize edits.
type Editor struct {
	rebalancer *Rebalancer
	baseline   Vector
	values     Vector
}

// NewEditor starts an editor from baseline, which must satisfy the partition.
func NewEditor(r *Rebalancer, baseline Vector) (*Editor, error) {
	if err := r.partition.Validate(baseline); err != nil {
		return nil, err
	}
	return &Editor{
		rebalancer: r,
		baseline:   baseline.Clone(),
		values:     baseline.Clone(),
	}, nil
}

// SetValue applies one edit. On error the current values are unchanged.
func (e *Editor) SetValue(key string, value float64) (Result, error) {
	res, err := e.rebalancer.SetValue(e.values, e.baseline, key, value)
	if err != nil {
		return Result{}, err
	}
	e.values = res.Values
	return res, nil
}

// Reset replaces both the baseline and the current values.
func (e *Editor) Reset(baseline Vector) error {
	if err := e.rebalancer.partition.Validate(baseline); err != nil {
		return err
	}
	e.baseline = baseline.Clone()
	e.values = baseline.Clone()
	return nil
}

// Value returns the current value for key.
func (e *Editor) Value(key string) (float64, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Values returns a snapshot of the current vector.
func (e *Editor) Values() Vector { return e.values.Clone() }

// Baseline returns a copy of the fallback weights.
func (e *Editor) Baseline() Vector { return e.baseline.Clone() }

// Sums returns every group total of the current vector.
func (e *Editor) Sums() map[string]float64 { return e.rebalancer.partition.Sums(e.values) }
