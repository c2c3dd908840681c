package mapdata

import (
	"os"
	"path/filepath"
	"testing"
)

const testMapJSON = `{
  "width": 4,
  "height": 2,
  "tilewidth": 32,
  "tileheight": 32,
  "orientation": "orthogonal",
  "properties": [{"name": "theme", "type": "string", "value": "ruins"}],
  "layers": [
    {
      "id": 1,
      "name": "collision",
      "type": "tilelayer",
      "width": 4,
      "height": 2,
      "visible": true,
      "data": [1, 1, 0, 0, 0, 0, 1, 0]
    },
    {
      "id": 2,
      "name": "objects",
      "type": "objectgroup",
      "visible": true,
      "objects": [
        {"id": 1, "name": "PlayerSpawn", "type": "", "x": 64, "y": 64, "width": 0, "height": 0, "visible": true},
        {"id": 2, "name": "wall", "type": "collider", "x": 100, "y": 100, "width": 20, "height": 10, "visible": true},
        {"id": 3, "name": "pit", "type": "collider", "x": 50, "y": 50, "visible": true, "ellipse": true, "width": 10, "height": 10}
      ]
    }
  ]
}`

func writeTestMap(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.json")
	if err := os.WriteFile(path, []byte(testMapJSON), 0o644); err != nil {
		t.Fatalf("write test map: %v", err)
	}
	return dir
}

func TestLoadParsesSpawnPointsAndColliders(t *testing.T) {
	dir := writeTestMap(t)
	loader := NewLoader(dir)

	m, err := loader.Load("arena.json")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Width != 4 || m.Height != 2 {
		t.Fatalf("unexpected map dimensions: %+v", m)
	}
	if m.Properties["theme"] != "ruins" {
		t.Fatalf("expected theme property, got %+v", m.Properties)
	}
	if len(m.SpawnPoints) != 1 {
		t.Fatalf("expected 1 spawn point, got %d: %+v", len(m.SpawnPoints), m.SpawnPoints)
	}

	var rects, circles int
	for _, c := range m.Colliders {
		switch c.Shape {
		case ShapeRectangle:
			rects++
		case ShapeCircle:
			circles++
		}
	}
	// The tile layer merges [1,1] at row 0 into one run, plus [1] at row 1,
	// col 2 into another: 2 tile-layer rectangles. The object layer adds one
	// more explicit rectangle (the "wall" collider) and one ellipse collider.
	if rects != 3 {
		t.Fatalf("expected 3 rectangle colliders (2 tile-run + 1 object), got %d", rects)
	}
	if circles != 1 {
		t.Fatalf("expected 1 circle collider from the ellipse object, got %d", circles)
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.Load("missing.json"); err == nil {
		t.Fatal("expected an error loading a nonexistent map file")
	}
}

func TestGetSpawnPointFallsBackWhenEmpty(t *testing.T) {
	m := &Map{}
	p := m.GetSpawnPoint(0)
	if p.X != 100 || p.Y != 100 {
		t.Fatalf("expected default fallback spawn point, got %+v", p)
	}
}

func TestSanitizeGIDMasksFlipBits(t *testing.T) {
	gid := uint32(5) | hFlip | vFlip
	if got := sanitizeGID(gid); got != 5 {
		t.Fatalf("expected sanitizeGID to strip flip bits, got %d", got)
	}
}
