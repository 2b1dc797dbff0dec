// Package tokens estimates token costs and packs text units into chunks that
// fit under a model's context ceiling.
package tokens

// Chunk is one group of text units and its estimated token total.
type Chunk struct {
	Units  []string
	Tokens int
}

// Plan is an ordered sequence of non-empty chunks.
type Plan []Chunk

// Units flattens the plan back into the packed unit sequence.
func (p Plan) Units() []string {
	var out []string
	for _, c := range p {
		out = append(out, c.Units...)
	}
	return out
}

// Pack groups units greedily in input order. A new chunk starts only when the
// next unit would push a non-empty chunk over ceiling, so a unit that alone
// exceeds ceiling still gets a chunk of its own. Units are never split or
// dropped.
func Pack(units []string, counter Counter, ceiling int) Plan {
	var (
		plan    Plan
		current Chunk
	)
	for _, unit := range units {
		n := counter.Count(unit)
		if current.Tokens+n > ceiling && len(current.Units) > 0 {
			plan = append(plan, current)
			current = Chunk{}
		}
		current.Units = append(current.Units, unit)
		current.Tokens += n
	}
	if len(current.Units) > 0 {
		plan = append(plan, current)
	}
	return plan
}

// Budgeter bundles a counter with the ceiling of one model.
type Budgeter struct {
	counter Counter
	ceiling int
}

// NewBudgeter returns a budgeter for model under limits using counter.
func NewBudgeter(model string, limits Limits, counter Counter) (*Budgeter, error) {
	ceiling, err := limits.Ceiling(model)
	if err != nil {
		return nil, err
	}
	return &Budgeter{counter: counter, ceiling: ceiling}, nil
}

// ForModel builds a budgeter with the model's tiktoken counter.
func ForModel(model string, limits Limits) (*Budgeter, error) {
	counter, err := NewCounter(model)
	if err != nil {
		return nil, err
	}
	return NewBudgeter(model, limits, counter)
}

func (b *Budgeter) Ceiling() int { return b.ceiling }

func (b *Budgeter) Estimate(text string) int { return b.counter.Count(text) }

func (b *Budgeter) Pack(units []string) Plan { return Pack(units, b.counter, b.ceiling) }
