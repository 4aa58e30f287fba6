package auction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// StrategyOrder is one candidate order of the rotation. Amounts are derived at run time.
type StrategyOrder struct {
	BuyTokenID      uint16 `json:"buyTokenId"`
	SellTokenID     uint16 `json:"sellTokenId"`
	BuyTokenSymbol  string `json:"buyTokenSymbol"`
	SellTokenSymbol string `json:"sellTokenSymbol"`
}

// Strategy is the cyclic list of orders; position k is due k periods after start.
type Strategy []StrategyOrder

type fieldKind int

const (
	kindTokenID fieldKind = iota
	kindSymbol
)

type fieldRule struct {
	name string
	kind fieldKind
}

var strategyOrderSchema = []fieldRule{
	{name: "buyTokenId", kind: kindTokenID},
	{name: "sellTokenId", kind: kindTokenID},
	{name: "buyTokenSymbol", kind: kindSymbol},
	{name: "sellTokenSymbol", kind: kindSymbol},
}

// LoadStrategy reads and validates a strategy file.
func LoadStrategy(path string) (Strategy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy %s: %w", path, err)
	}
	return ParseStrategy(b)
}

// ParseStrategy validates raw JSON against the strategy schema. All violations
// are collected into one validation Error.
func ParseStrategy(raw []byte) (Strategy, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, validationError(nil, "strategy file is not valid JSON: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, validationError(nil, "strategy file has trailing data after the array")
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, validationError(nil, "strategy file does not contain an array")
	}
	if len(items) == 0 {
		return nil, validationError(nil, "strategy file contains no orders")
	}

	var violations []string
	out := make(Strategy, 0, len(items))
	for i, item := range items {
		order, problems := checkStrategyOrder(item)
		if len(problems) > 0 {
			serialized, _ := json.Marshal(item)
			for _, p := range problems {
				violations = append(violations, fmt.Sprintf("order %d %s: %s", i, serialized, p))
			}
			continue
		}
		out = append(out, order)
	}
	if len(violations) > 0 {
		return nil, validationError(violations, "order from strategy file is not valid")
	}
	return out, nil
}

func checkStrategyOrder(item any) (StrategyOrder, []string) {
	obj, ok := item.(map[string]any)
	if !ok {
		return StrategyOrder{}, []string{"not an object"}
	}

	var problems []string
	ids := make(map[string]uint16, 2)
	symbols := make(map[string]string, 2)
	for _, rule := range strategyOrderSchema {
		v, present := obj[rule.name]
		if !present {
			problems = append(problems, fmt.Sprintf("%s missing", rule.name))
			continue
		}
		switch rule.kind {
		case kindTokenID:
			id, err := tokenIDFromJSON(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s %v", rule.name, err))
				continue
			}
			ids[rule.name] = id
		case kindSymbol:
			s, ok := v.(string)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s must be a string", rule.name))
				continue
			}
			symbols[rule.name] = s
		}
	}
	if len(problems) > 0 {
		return StrategyOrder{}, problems
	}
	return StrategyOrder{
		BuyTokenID:      ids["buyTokenId"],
		SellTokenID:     ids["sellTokenId"],
		BuyTokenSymbol:  symbols["buyTokenSymbol"],
		SellTokenSymbol: symbols["sellTokenSymbol"],
	}, nil
}

func tokenIDFromJSON(v any) (uint16, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("must be an integer")
	}
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		// Accept integral floats such as 3.0 the way a JSON number check would.
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
			return 0, fmt.Errorf("must be an integer")
		}
		i = int64(f)
	}
	if i < 0 || i > math.MaxUint16 {
		return 0, fmt.Errorf("must be within [0, %d], got %d", math.MaxUint16, i)
	}
	return uint16(i), nil
}

// TokenIDs returns the distinct token ids referenced by the strategy in first-seen order.
func (s Strategy) TokenIDs() []uint16 {
	seen := make(map[uint16]struct{}, 2*len(s))
	out := make([]uint16, 0, 2*len(s))
	for _, o := range s {
		for _, id := range []uint16{o.BuyTokenID, o.SellTokenID} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
