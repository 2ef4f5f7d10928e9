package parser

import (
	"fmt"

	"github.com/RedUtils/botcore/pkg/core"
)

// ParsePrediction parses a ball prediction payload into slices, in the order received.
// Ordering is not checked here; the prediction adapter truncates out-of-order input.
func (p *Parser) ParsePrediction(data []string) ([]core.BallSlice, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no payload", ErrMalformedPrediction)
	}

	var pred predictionJSON
	if err := decodeValidated(predictionSchema, data[0], &pred); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPrediction, err)
	}

	slices := make([]core.BallSlice, 0, len(pred.Slices))
	for _, s := range pred.Slices {
		slices = append(slices, core.BallSlice{
			Location:        s.Physics.Location.toCore(),
			Velocity:        s.Physics.Velocity.toCore(),
			AngularVelocity: s.Physics.AngularVelocity.toCore(),
			Time:            s.GameSeconds,
		})
	}

	return slices, nil
}
