package membership

type Status int

const (
	StatusHealthy Status = iota + 1
	StatusFaulty
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusFaulty:
		return "faulty"
	default:
		return ""
	}
}

// MarshalText makes the status render as a string in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
