package gridcodec

import (
	"errors"
	"reflect"
	"testing"

	"trenchline.gg/internal/grid"
)

type soldier struct {
	SoldierTypeName string `json:"soldierTypeName"`
	SoldierTierName string `json:"soldierTierName"`
}

func TestRoundTrip_RiflemanScenario(t *testing.T) {
	g := map[grid.Coord]soldier{{X: 0, Y: 0}: {SoldierTypeName: "Rifleman", SoldierTierName: "Rare"}}
	meta := map[string]string{"points": "150"}

	b, err := ToJSON(g, meta)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	gotGrid, gotMeta, err := FromJSON[soldier](b)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if !reflect.DeepEqual(gotGrid, g) {
		t.Fatalf("grid mismatch: got=%v want=%v", gotGrid, g)
	}
	if gotMeta["points"] != "150" {
		t.Fatalf("points=%q want 150", gotMeta["points"])
	}
}

func TestRoundTrip_Law(t *testing.T) {
	cases := []struct {
		name string
		grid map[grid.Coord]soldier
		meta map[string]string
	}{
		{"empty", map[grid.Coord]soldier{}, map[string]string{}},
		{"many", map[grid.Coord]soldier{
			{X: 0, Y: 0}: {"Rifleman", "Common"},
			{X: 4, Y: 0}: {"Sniper", "Ultra"},
			{X: 2, Y: 3}: {"Medic", "Uncommon"},
		}, map[string]string{"points": "0", "wave": "12", "": "empty key"}},
		{"unicode", map[grid.Coord]soldier{{X: 1, Y: 1}: {"Grenadier ☢", "SuperRare"}}, map[string]string{"note": "héllo\n\"q\""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Marshal(Encode(tc.grid, tc.meta))
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			doc, err := Unmarshal[soldier](b)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			g, meta := Decode(doc)
			if !reflect.DeepEqual(g, tc.grid) || !reflect.DeepEqual(meta, tc.meta) {
				t.Fatalf("round trip mismatch: grid=%v meta=%v", g, meta)
			}
		})
	}
}

func TestEncode_StableOrder(t *testing.T) {
	doc := Encode(map[grid.Coord]int{{X: 1, Y: 1}: 4, {X: 0, Y: 1}: 3, {X: 1, Y: 0}: 2, {X: 0, Y: 0}: 1},
		map[string]string{"b": "2", "a": "1"})
	for i, e := range doc.Entries {
		if e.Value != i+1 {
			t.Fatalf("entries not row-major: %+v", doc.Entries)
		}
	}
	if doc.Metadata[0].Key != "a" || doc.Metadata[1].Key != "b" {
		t.Fatalf("metadata not sorted: %+v", doc.Metadata)
	}
}

func TestDecode_DuplicateCoordinateLastWins(t *testing.T) {
	b := []byte(`{
	  "metadata":[{"key":"points","value":"1"},{"key":"points","value":"2"}],
	  "entries":[
	    {"x":0,"y":0,"value":{"soldierTypeName":"A","soldierTierName":"Common"}},
	    {"x":0,"y":0,"value":{"soldierTypeName":"B","soldierTierName":"Rare"}}
	  ]
	}`)
	g, meta, err := FromJSON[soldier](b)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if len(g) != 1 || g[grid.Coord{}].SoldierTypeName != "B" {
		t.Fatalf("grid=%v want last entry", g)
	}
	if meta["points"] != "2" {
		t.Fatalf("points=%q want 2", meta["points"])
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"entries":`,
		"missing entries": `{"metadata":[]}`,
		"entries object":  `{"entries":{}}`,
		"x string":        `{"entries":[{"x":"0","y":0,"value":{}}]}`,
		"x fractional":    `{"entries":[{"x":0.5,"y":0,"value":{}}]}`,
		"meta value int":  `{"metadata":[{"key":"points","value":150}],"entries":[]}`,
		"payload shape":   `{"entries":[{"x":0,"y":0,"value":7}]}`,
		"top level array": `[]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal[soldier]([]byte(in))
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("err=%v want ErrMalformedDocument", err)
			}
		})
	}
}

func TestUnmarshal_NullMetadataAllowed(t *testing.T) {
	g, meta, err := FromJSON[soldier]([]byte(`{"metadata":null,"entries":[]}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if len(g) != 0 || len(meta) != 0 {
		t.Fatalf("expected empty maps, got %v %v", g, meta)
	}
}
