// Package vehicles exposes the vehicle catalog as agent tools.
package vehicles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wheelhouse-ai/wheelhouse/internal/agent"
	"github.com/wheelhouse-ai/wheelhouse/internal/catalog"
)

// SearchTool implements search_vehicles: filtered catalog search.
type SearchTool struct {
	Store *catalog.Store
}

func (t *SearchTool) Name() string { return "search_vehicles" }

func (t *SearchTool) Description() string {
	return "Search the vehicle catalog by name, price band (in lakh), fuel type, body type, and seating. Returns up to 'limit' matches with key specs."
}

func (t *SearchTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"name": {"type": "string", "description": "Vehicle or brand name, fuzzy matched"},
			"min_price_lakh": {"type": "number", "minimum": 0},
			"max_price_lakh": {"type": "number", "minimum": 0},
			"fuel_type": {"type": "string", "description": "Petrol, Diesel, Electric, CNG"},
			"body_type": {"type": "string", "description": "SUV, Sedan, Hatchback"},
			"min_seating": {"type": "integer", "minimum": 2},
			"limit": {"type": "integer", "minimum": 1, "maximum": 10}
		}
	}`)
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolOutput, error) {
	q := catalog.Query{
		Name:         stringArg(args, "name"),
		MinPriceLakh: floatArg(args, "min_price_lakh"),
		MaxPriceLakh: floatArg(args, "max_price_lakh"),
		FuelType:     stringArg(args, "fuel_type"),
		BodyType:     stringArg(args, "body_type"),
		MinSeating:   intArg(args, "min_seating"),
		Limit:        intArg(args, "limit"),
	}

	results := t.Store.Search(q)
	if len(results) == 0 {
		return agent.Success("No vehicles matched those criteria. Try relaxing the filters."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d vehicle(s):\n", len(results))
	for _, v := range results {
		b.WriteString(formatVehicleLine(v))
	}
	out := agent.Success(b.String())
	out.Metadata = map[string]any{"count": len(results)}
	return out, nil
}

// DetailsTool implements get_vehicle_details: full specs for one vehicle.
type DetailsTool struct {
	Store *catalog.Store
}

func (t *DetailsTool) Name() string { return "get_vehicle_details" }

func (t *DetailsTool) Description() string {
	return "Get the full specification sheet for one vehicle by its catalog id."
}

func (t *DetailsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Catalog id, e.g. xuv700"}
		},
		"required": ["id"]
	}`)
}

func (t *DetailsTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolOutput, error) {
	id := stringArg(args, "id")
	v, ok := t.Store.Get(id)
	if !ok {
		return agent.Failure(fmt.Sprintf("No vehicle with id %q in the catalog.", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)\n", v.Brand, v.Name, v.BodyType)
	fmt.Fprintf(&b, "Price: ₹%.2f–%.2f lakh\n", v.PriceMinLakh, v.PriceMaxLakh)
	fmt.Fprintf(&b, "Fuel: %s\n", strings.Join(v.FuelTypes, ", "))
	fmt.Fprintf(&b, "Engine: %d cc, %.0f bhp, %.0f Nm\n", v.EngineCC, v.PowerBHP, v.TorqueNM)
	fmt.Fprintf(&b, "Transmission: %s\n", strings.Join(v.Transmission, ", "))
	fmt.Fprintf(&b, "Mileage: %.1f km/l\n", v.MileageKMPL)
	fmt.Fprintf(&b, "Seating: %d\n", v.Seating)
	if len(v.Highlights) > 0 {
		fmt.Fprintf(&b, "Highlights: %s\n", strings.Join(v.Highlights, "; "))
	}
	return agent.Success(b.String()), nil
}

// CompareTool implements compare_vehicles: attribute rows across
// two or more vehicles.
type CompareTool struct {
	Store *catalog.Store
}

func (t *CompareTool) Name() string { return "compare_vehicles" }

func (t *CompareTool) Description() string {
	return "Compare two or more vehicles by catalog id, attribute by attribute."
}

func (t *CompareTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ids": {
				"type": "array",
				"items": {"type": "string"},
				"minItems": 2,
				"maxItems": 4
			}
		},
		"required": ["ids"]
	}`)
}

func (t *CompareTool) Execute(ctx context.Context, args map[string]any) (*agent.ToolOutput, error) {
	raw, _ := args["ids"].([]any)
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			ids = append(ids, s)
		}
	}

	vehicles, rows, err := t.Store.Compare(ids)
	if err != nil {
		return agent.Failure(err.Error()), nil
	}

	var b strings.Builder
	names := make([]string, len(vehicles))
	for i, v := range vehicles {
		names[i] = v.Name
	}
	fmt.Fprintf(&b, "Comparison: %s\n", strings.Join(names, " vs "))
	for _, row := range rows {
		fmt.Fprintf(&b, "%s: %s\n", row.Attribute, strings.Join(row.Values, " | "))
	}
	return agent.Success(b.String()), nil
}

func formatVehicleLine(v catalog.Vehicle) string {
	return fmt.Sprintf("- %s [%s]: ₹%.2f–%.2f lakh, %s, %d seats, %.1f km/l\n",
		v.Name, v.ID, v.PriceMinLakh, v.PriceMaxLakh, strings.Join(v.FuelTypes, "/"), v.Seating, v.MileageKMPL)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatArg(args map[string]any, key string) float64 {
	f, _ := args[key].(float64)
	return f
}

func intArg(args map[string]any, key string) int {
	f, _ := args[key].(float64)
	return int(f)
}
