package aggregates

// Contract names an aggregate and the invariant its writes keep. Write
// methods of every aggregate open and own their transaction.
type Contract struct {
	Name      string
	Invariant string
}

type Aggregate interface {
	Contract() Contract
}
