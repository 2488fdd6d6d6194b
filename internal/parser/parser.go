// Package parser converts raw host-bridge payloads into engine types. The
// bridge delivers every event as a []string of quoted fields; numbers may be
// serialized as floats because some host scripting layers have no integer
// type. Parsing is pure string-to-struct conversion with no side effects.
package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fitvtt/attrition/internal/util"
	"github.com/fitvtt/attrition/pkg/core"
)

// parseIntFromFloat parses a string that may be an integer ("32") or float
// ("32.00") into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

func parseBool(s string) bool {
	return s == "true" || s == "1"
}

// Parser provides pure []string to struct conversion.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

func clean(data []string) {
	for i, v := range data {
		data[i] = util.Clean(v)
	}
}

// ParseTick parses a world-time advance payload.
// Fields: [0] now, [1] elapsed.
func (p *Parser) ParseTick(data []string) (core.Tick, error) {
	var result core.Tick
	clean(data)

	if len(data) < 2 {
		return result, fmt.Errorf("insufficient data fields: got %d, need 2", len(data))
	}

	now, err := parseIntFromFloat(data[0])
	if err != nil {
		return result, fmt.Errorf("error parsing now: %v", err)
	}
	elapsed, err := parseIntFromFloat(data[1])
	if err != nil {
		return result, fmt.Errorf("error parsing elapsed: %v", err)
	}

	result.Now = now
	result.Elapsed = elapsed
	return result, nil
}

// ParseItemChange parses an inventory mutation payload.
// Fields: [0] actorId, [1] itemName, [2] quantityDelta, [3] chargesDelta.
func (p *Parser) ParseItemChange(data []string) (core.ItemChange, error) {
	var result core.ItemChange
	clean(data)

	if len(data) < 4 {
		return result, fmt.Errorf("insufficient data fields: got %d, need 4", len(data))
	}
	if data[0] == "" {
		return result, fmt.Errorf("empty actor id")
	}

	qty, err := parseIntFromFloat(data[2])
	if err != nil {
		return result, fmt.Errorf("error parsing quantityDelta: %v", err)
	}
	charges, err := parseIntFromFloat(data[3])
	if err != nil {
		return result, fmt.Errorf("error parsing chargesDelta: %v", err)
	}

	result.ActorID = core.ActorID(data[0])
	result.ItemName = data[1]
	result.QuantityDelta = int(qty)
	result.ChargesDelta = int(charges)
	return result, nil
}

// actorItem is the wire form of one carried item in an actor payload.
type actorItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Charges     int    `json:"charges"`
	MaxCharges  int    `json:"maxCharges"`
	UseActivity bool   `json:"useActivity"`
	ConsumeFrom string `json:"consumeFrom"`
}

// ParseActor parses an actor snapshot payload.
// Fields: [0] id, [1] name, [2] playerOwned, [3] conModifier,
// [4] owners JSON array, [5] items JSON array.
func (p *Parser) ParseActor(data []string) (core.Actor, error) {
	var result core.Actor
	clean(data)

	if len(data) < 6 {
		return result, fmt.Errorf("insufficient data fields: got %d, need 6", len(data))
	}
	if data[0] == "" {
		return result, fmt.Errorf("empty actor id")
	}

	conMod, err := parseIntFromFloat(data[3])
	if err != nil {
		return result, fmt.Errorf("error parsing conModifier: %v", err)
	}

	var owners []string
	if data[4] != "" {
		if err := json.Unmarshal([]byte(data[4]), &owners); err != nil {
			return result, fmt.Errorf("error parsing owners: %v", err)
		}
	}

	var items []actorItem
	if data[5] != "" {
		if err := json.Unmarshal([]byte(data[5]), &items); err != nil {
			return result, fmt.Errorf("error parsing items: %v", err)
		}
	}

	result.ID = core.ActorID(data[0])
	result.Name = data[1]
	result.PlayerOwned = parseBool(data[2])
	result.ConModifier = int(conMod)
	for _, o := range owners {
		result.Owners = append(result.Owners, core.UserID(o))
	}
	for _, it := range items {
		result.Items = append(result.Items, core.Item{
			ID:          it.ID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			Charges:     it.Charges,
			MaxCharges:  it.MaxCharges,
			UseActivity: it.UseActivity,
			ConsumeFrom: it.ConsumeFrom,
		})
	}
	return result, nil
}

// ParseActorRef parses a payload that carries just an actor id, used by the
// explicit consume and rest commands.
func (p *Parser) ParseActorRef(data []string) (core.ActorID, error) {
	clean(data)
	if len(data) < 1 || data[0] == "" {
		return "", fmt.Errorf("empty actor id")
	}
	return core.ActorID(data[0]), nil
}
