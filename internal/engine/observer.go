package engine

// Strategy names the step of the resolution chain that settled a request.
type Strategy string

const (
	StrategyHandler   Strategy = "handler"
	StrategyQueue     Strategy = "queue"
	StrategyParent    Strategy = "parent"
	StrategyFallback  Strategy = "fallback"
	StrategyExhausted Strategy = "exhausted"
)

// ClearTarget names what a clear emptied.
type ClearTarget string

const (
	ClearTargetQueue    ClearTarget = "queue"
	ClearTargetHandlers ClearTarget = "handlers"
)

// Resolution describes one finished Resolve call.
type Resolution struct {
	Seq       int64
	Scope     string
	Operation string
	Args      []any
	Strategy  Strategy
	Value     any
	Err       error
}

// Clear describes one ClearQueue or ClearHandlers call on one scope.
type Clear struct {
	Seq    int64
	Scope  string
	Target ClearTarget
}

// Observer receives engine events. Implementations must be safe for concurrent
// use, since overlapping resolutions report from their own goroutines.
type Observer interface {
	Resolved(Resolution)
	Cleared(Clear)
}

type multiObserver []Observer

// Observers fans events out to every non-nil observer, in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) Resolved(r Resolution) {
	for _, o := range m {
		o.Resolved(r)
	}
}

func (m multiObserver) Cleared(c Clear) {
	for _, o := range m {
		o.Cleared(c)
	}
}

type nopObserver struct{}

func (nopObserver) Resolved(Resolution) {}
func (nopObserver) Cleared(Clear)       {}
