package parser

import (
	"fmt"

	"github.com/RedUtils/botcore/pkg/core"
)

// ParseTick parses a raw game tick packet into a WorldSnapshot.
// Every failure wraps ErrMalformedSnapshot.
func (p *Parser) ParseTick(data []string) (core.WorldSnapshot, error) {
	var snap core.WorldSnapshot

	if len(data) == 0 {
		return snap, fmt.Errorf("%w: no payload", ErrMalformedSnapshot)
	}

	var packet packetJSON
	if err := decodeValidated(tickSchema, data[0], &packet); err != nil {
		return snap, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	info := packet.MatchInfo
	if info == nil || info.SecondsElapsed == nil || info.GameTimeRemaining == nil {
		return snap, fmt.Errorf("%w: missing match timing", ErrMalformedSnapshot)
	}

	snap.SecondsElapsed = *info.SecondsElapsed
	snap.TimeRemaining = *info.GameTimeRemaining
	snap.UnlimitedTime = info.IsUnlimitedTime
	snap.Overtime = info.IsOvertime

	snap.GameSpeed = DefaultGameSpeed
	if info.GameSpeed != nil {
		snap.GameSpeed = *info.GameSpeed
	}
	snap.Gravity = core.Vec3{Z: DefaultGravityZ}
	if info.WorldGravityZ != nil {
		snap.Gravity.Z = *info.WorldGravityZ
	}

	phase, err := intFromNumber(info.MatchPhase)
	if err != nil {
		return snap, fmt.Errorf("%w: error converting match phase: %w", ErrMalformedSnapshot, err)
	}
	snap.Phase = core.MatchPhase(phase)
	if !snap.Phase.Valid() {
		return snap, fmt.Errorf("%w: unknown match phase %d", ErrMalformedSnapshot, phase)
	}

	for i, t := range packet.Teams {
		idx := i
		if t.TeamIndex != nil {
			idx, err = intFromNumber(*t.TeamIndex)
			if err != nil {
				return snap, fmt.Errorf("%w: error converting team index: %w", ErrMalformedSnapshot, err)
			}
		}
		if idx < 0 || idx > 1 {
			continue
		}
		score, err := intFromNumber(t.Score)
		if err != nil {
			return snap, fmt.Errorf("%w: error converting score: %w", ErrMalformedSnapshot, err)
		}
		snap.Scores[idx] = score
	}

	snap.Cars = make([]core.CarInfo, 0, len(packet.Players))
	for i, pl := range packet.Players {
		car, err := parsePlayer(i, pl)
		if err != nil {
			return snap, fmt.Errorf("%w: player %d: %w", ErrMalformedSnapshot, i, err)
		}
		snap.Cars = append(snap.Cars, car)
	}

	snap.Balls = make([]core.BallInfo, 0, len(packet.Balls))
	for _, b := range packet.Balls {
		snap.Balls = append(snap.Balls, core.BallInfo{Physics: b.Physics.toCore()})
	}

	return snap, nil
}

func parsePlayer(index int, pl playerJSON) (core.CarInfo, error) {
	var car core.CarInfo

	playerID, err := intFromNumber(pl.PlayerID)
	if err != nil {
		return car, fmt.Errorf("error converting playerId: %w", err)
	}
	team, err := intFromNumber(pl.Team)
	if err != nil {
		return car, fmt.Errorf("error converting team: %w", err)
	}

	car = core.CarInfo{
		PlayerID:        playerID,
		Name:            pl.Name,
		Team:            core.Team(team),
		Physics:         pl.Physics.toCore(),
		Boost:           pl.Boost,
		HasWheelContact: pl.HasWheelContact,
		IsSupersonic:    pl.IsSupersonic,
		Jumped:          pl.Jumped,
		DoubleJumped:    pl.DoubleJumped,
		IsBot:           pl.IsBot,
		Demolished:      pl.IsDemolished,
	}

	if pl.LatestTouch != nil {
		ballIndex, err := intFromNumber(pl.LatestTouch.BallIndex)
		if err != nil {
			return car, fmt.Errorf("error converting ballIndex: %w", err)
		}
		car.LatestTouch = &core.BallTouch{
			Time:        pl.LatestTouch.GameSeconds,
			Location:    pl.LatestTouch.Location.toCore(),
			Normal:      pl.LatestTouch.Normal.toCore(),
			PlayerName:  pl.Name,
			PlayerIndex: index,
			Team:        car.Team,
			BallIndex:   ballIndex,
		}
	}

	return car, nil
}
