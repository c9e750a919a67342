package strategies

// NoopStrategy tracks no symbols and never signals. Baseline for testing
// the replay loop.
type NoopStrategy struct{}

func (NoopStrategy) Name() string      { return "noop" }
func (NoopStrategy) Symbols() []string { return nil }

func (NoopStrategy) GenerateSignals(w Window) map[string]Signal {
	return nil
}
