package api

type Verdict string

const (
	Accepted          Verdict = "AC"
	WrongAnswer       Verdict = "WA"
	TimeLimitExceeded Verdict = "TLE"
	RuntimeError      Verdict = "RTE"
)

func (v Verdict) String() string {
	return string(v)
}

// Valid reports whether v is one of the four verdict codes.
func (v Verdict) Valid() bool {
	switch v {
	case Accepted, WrongAnswer, TimeLimitExceeded, RuntimeError:
		return true
	}
	return false
}
