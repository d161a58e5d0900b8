package vehicles

import (
	"context"
	"strings"
	"testing"

	"github.com/wheelhouse-ai/wheelhouse/internal/catalog"
	"github.com/wheelhouse-ai/wheelhouse/pkg/models"
)

func testStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.NewStore([]catalog.Vehicle{
		{ID: "xuv700", Name: "XUV700", Brand: "Mahindra", BodyType: "SUV",
			FuelTypes: []string{"Diesel"}, PriceMinLakh: 13.99, PriceMaxLakh: 25.89,
			EngineCC: 2184, PowerBHP: 182, TorqueNM: 450, Transmission: []string{"Automatic"},
			MileageKMPL: 16.5, Seating: 7, Highlights: []string{"ADAS", "Panoramic sunroof"}},
		{ID: "thar", Name: "Thar", Brand: "Mahindra", BodyType: "SUV",
			FuelTypes: []string{"Petrol", "Diesel"}, PriceMinLakh: 11.35, PriceMaxLakh: 17.6,
			EngineCC: 1997, PowerBHP: 150, TorqueNM: 320, Transmission: []string{"Manual"},
			MileageKMPL: 15.2, Seating: 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSearchToolFilters(t *testing.T) {
	tool := &SearchTool{Store: testStore(t)}

	out, err := tool.Execute(context.Background(), map[string]any{
		"fuel_type":   "diesel",
		"min_seating": float64(7),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusSuccess {
		t.Errorf("status = %q", out.Status)
	}
	if !strings.Contains(out.Text, "XUV700") || strings.Contains(out.Text, "Thar") {
		t.Errorf("output = %q", out.Text)
	}
	if out.Metadata["count"] != 1 {
		t.Errorf("metadata = %#v", out.Metadata)
	}
}

func TestSearchToolNoMatches(t *testing.T) {
	tool := &SearchTool{Store: testStore(t)}

	out, err := tool.Execute(context.Background(), map[string]any{"fuel_type": "hydrogen"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusSuccess || !strings.Contains(out.Text, "No vehicles matched") {
		t.Errorf("output = %+v", out)
	}
}

func TestDetailsTool(t *testing.T) {
	tool := &DetailsTool{Store: testStore(t)}

	out, err := tool.Execute(context.Background(), map[string]any{"id": "xuv700"})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Mahindra XUV700", "2184 cc", "ADAS"} {
		if !strings.Contains(out.Text, want) {
			t.Errorf("output missing %q:\n%s", want, out.Text)
		}
	}

	out, err = tool.Execute(context.Background(), map[string]any{"id": "nano"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusFailure {
		t.Errorf("unknown id status = %q", out.Status)
	}
}

func TestCompareTool(t *testing.T) {
	tool := &CompareTool{Store: testStore(t)}

	out, err := tool.Execute(context.Background(), map[string]any{
		"ids": []any{"xuv700", "thar"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusSuccess {
		t.Fatalf("output = %+v", out)
	}
	if !strings.Contains(out.Text, "XUV700 vs Thar") {
		t.Errorf("output = %q", out.Text)
	}
	if !strings.Contains(out.Text, "Seating: 7 | 4") {
		t.Errorf("output = %q", out.Text)
	}
}

func TestCompareToolUnknownID(t *testing.T) {
	tool := &CompareTool{Store: testStore(t)}

	out, err := tool.Execute(context.Background(), map[string]any{
		"ids": []any{"xuv700", "nano"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ToolStatusFailure {
		t.Errorf("status = %q, want failure", out.Status)
	}
}
