package routing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate     = errors.New("invalid coordinate")
	ErrNoNearbyNode          = errors.New("no graph node within match radius")
	ErrNoPathFound           = errors.New("no path between matched nodes")
	ErrInconsistentGraphData = errors.New("path references an edge missing from the graph")
	ErrTimeout               = errors.New("route computation timed out")
)

// Reason tags a failed routing request.
type Reason string

const (
	ReasonInvalidCoordinate Reason = "invalid-coordinate"
	ReasonNoNearbyNode      Reason = "no-nearby-node"
	ReasonNoPath            Reason = "no-path"
	ReasonInternal          Reason = "internal"
	ReasonTimeout           Reason = "timeout"
)

// Failure is the error returned by every failed Router call.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(reason Reason, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}

// ReasonOf returns the failure reason carried by err, or "" when err is not a
// routing failure.
func ReasonOf(err error) Reason {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}
