package parser

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/RedUtils/botcore/pkg/core"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedSnapshot is returned when a tick payload cannot be turned into a snapshot.
// The tick must be skipped without touching any tracked state.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// ErrMalformedPrediction is returned for prediction payloads that fail validation.
var ErrMalformedPrediction = errors.New("malformed prediction")

var (
	//go:embed schema/tick.schema.json
	tickSchemaSource string

	//go:embed schema/prediction.schema.json
	predictionSchemaSource string

	tickSchema       = jsonschema.MustCompileString("tick.schema.json", tickSchemaSource)
	predictionSchema = jsonschema.MustCompileString("prediction.schema.json", predictionSchemaSource)
)

// Defaults applied when the host omits optional match info.
const (
	DefaultGameSpeed = 1.0
	DefaultGravityZ  = -650.0
)

// intFromNumber converts a JSON number to int. Some hosts serialize
// integral values as floats ("2.0"), so those are accepted as long as they are whole.
func intFromNumber(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("intFromNumber: %v is not a whole number", f)
	}
	return int(f), nil
}

// Parser provides pure raw payload -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger

	// Static config set at creation time
	extensionVersion string
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger, extensionVersion string) *Parser {
	return &Parser{
		logger:           logger,
		extensionVersion: extensionVersion,
	}
}

// decodeValidated validates raw against schema and then decodes it into dst.
func decodeValidated(schema *jsonschema.Schema, raw string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("error decoding payload: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("payload failed validation: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("error unmarshalling payload: %w", err)
	}
	return nil
}

// ParseMatchStart parses the optional match descriptor sent with :MATCH:START:.
func (p *Parser) ParseMatchStart(data []string) (core.Match, error) {
	match := core.Match{
		StartTime:        time.Now(),
		ExtensionVersion: p.extensionVersion,
	}

	if len(data) == 0 || data[0] == "" {
		match.Name = "unnamed match"
		return match, nil
	}

	var raw matchStartJSON
	if err := json.Unmarshal([]byte(data[0]), &raw); err != nil {
		return match, fmt.Errorf("error unmarshalling match data: %w", err)
	}

	match.Name = raw.Name
	if match.Name == "" {
		match.Name = "unnamed match"
	}
	match.AgentName = raw.AgentName
	match.AgentIndex = raw.Index
	match.Tag = raw.Tag
	if raw.Team < 0 || raw.Team > 1 {
		return match, fmt.Errorf("error converting team: %d is not a valid team", raw.Team)
	}
	match.Team = core.Team(raw.Team)

	p.logger.Debug("Parsed match data", "matchName", match.Name, "agentIndex", match.AgentIndex)
	return match, nil
}
