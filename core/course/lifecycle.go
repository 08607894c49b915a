package course

type Status string

const (
	Draft     Status = "draft"
	Published Status = "published"
	Paused    Status = "paused"
)

type Transition string

const (
	Publish Transition = "publish"
	Pause   Transition = "pause"
	Resume  Transition = "resume"
)

// transitions maps an operation to the states it may start from and the
// state it leads to. Publishing a published course is accepted so a repeated
// call is harmless.
var transitions = map[Transition]struct {
	from []Status
	to   Status
}{
	Publish: {from: []Status{Draft, Published}, to: Published},
	Pause:   {from: []Status{Published}, to: Paused},
	Resume:  {from: []Status{Paused}, to: Published},
}

func (s Status) Valid() bool {
	switch s {
	case Draft, Published, Paused:
		return true
	}
	return false
}

// Next returns the state reached by applying op to s.
func (s Status) Next(op Transition) (Status, bool) {
	tr, ok := transitions[op]
	if !ok {
		return s, false
	}
	for _, from := range tr.from {
		if from == s {
			return tr.to, true
		}
	}
	return s, false
}
