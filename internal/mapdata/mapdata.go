// Package mapdata loads a Tiled JSON map into spawn points and physics
// colliders. Adapted from the teacher's map_loader.go: the TiledMap JSON
// schema and the tile-layer horizontal-run collider merge are kept
// closely; the teacher's embedded-tileset per-tile collision template
// system (tile.ObjectGroup) is trimmed — see DESIGN.md — since no example
// map in this corpus ships per-tile collision metadata, only whole-layer
// and whole-object colliders.
package mapdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// TiledMap mirrors the subset of the Tiled JSON export format this loader
// consumes.
type TiledMap struct {
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	TileWidth       int             `json:"tilewidth"`
	TileHeight      int             `json:"tileheight"`
	Orientation     string          `json:"orientation"`
	Layers          []TiledLayer    `json:"layers"`
	Properties      []TiledProperty `json:"properties,omitempty"`
	BackgroundColor string          `json:"backgroundcolor,omitempty"`
}

type TiledLayer struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Data       []uint32        `json:"data,omitempty"`
	Objects    []TiledObject   `json:"objects,omitempty"`
	Properties []TiledProperty `json:"properties,omitempty"`
	Visible    bool            `json:"visible"`
}

type TiledObject struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Properties []TiledProperty `json:"properties,omitempty"`
	Visible    bool            `json:"visible"`
	Polygon    []TiledPoint    `json:"polygon,omitempty"`
	Ellipse    bool            `json:"ellipse,omitempty"`
	GID        uint32          `json:"gid,omitempty"`
}

type TiledPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TiledProperty struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// ColliderShape enumerates the collider kinds Map.Colliders carries.
type ColliderShape int

const (
	ShapeRectangle ColliderShape = iota
	ShapePolygon
	ShapeCircle
)

// Collider is a static (IsMovable=false) physics shape synthesized from a
// Tiled object or merged tile run, ready for physics.Bridge.AddRectangle /
// AddPolygon or a circle equivalent the caller constructs from Radius.
type Collider struct {
	Shape   ColliderShape
	X, Y    float64 // center, world space
	Width   float64 // rectangle width, or polygon bounding width
	Height  float64
	Radius  float64
	Polygon []vector.Vector // absolute world-space points, ShapePolygon only
}

// Map is the parsed, ready-to-apply result of loading a Tiled JSON file.
type Map struct {
	Width, Height         int
	TileWidth, TileHeight int
	SpawnPoints           []vector.Vector
	Colliders             []Collider
	Background            string
	Properties            map[string]any
}

// Loader reads Tiled JSON map files from a directory root.
type Loader struct {
	dir string
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load parses filename (relative to the loader's directory) into a Map.
func (l *Loader) Load(filename string) (*Map, error) {
	path := filepath.Join(l.dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map file %s: %w", path, err)
	}

	var tiled TiledMap
	if err := json.Unmarshal(data, &tiled); err != nil {
		return nil, fmt.Errorf("parse map JSON %s: %w", path, err)
	}

	m := &Map{
		Width:      tiled.Width,
		Height:     tiled.Height,
		TileWidth:  tiled.TileWidth,
		TileHeight: tiled.TileHeight,
		Background: tiled.BackgroundColor,
		Properties: make(map[string]any),
	}
	for _, p := range tiled.Properties {
		m.Properties[p.Name] = p.Value
	}

	for i := range tiled.Layers {
		layer := &tiled.Layers[i]
		if !layer.Visible {
			continue
		}
		switch layer.Type {
		case "tilelayer":
			processTileLayer(&tiled, layer, m)
		case "objectgroup":
			processObjectLayer(layer, m)
		}
	}

	return m, nil
}

// GetSpawnPoint returns SpawnPoints[index], or a default (100,100) if out
// of range or the map has none (mirrors the teacher's fallback spawn).
func (m *Map) GetSpawnPoint(index int) vector.Vector {
	if index < 0 || index >= len(m.SpawnPoints) {
		if len(m.SpawnPoints) > 0 {
			return m.SpawnPoints[0]
		}
		return vector.Vector{X: 100, Y: 100}
	}
	return m.SpawnPoints[index]
}

// processTileLayer merges horizontally-adjacent occupied cells of a
// collision-named tile layer into as few rectangle colliders as possible,
// mirroring the teacher's processTileLayer run-length merge.
func processTileLayer(tmap *TiledMap, layer *TiledLayer, m *Map) {
	if !isCollisionLayer(layer) {
		return
	}

	w, h := layer.Width, layer.Height
	if w == 0 || h == 0 || len(layer.Data) < w*h {
		return
	}
	occ := make([]bool, w*h)
	for i, gid := range layer.Data {
		if sanitizeGID(gid) != 0 {
			occ[i] = true
		}
	}

	tw := float64(tmap.TileWidth)
	th := float64(tmap.TileHeight)

	for y := 0; y < h; y++ {
		x := 0
		for x < w {
			idx := y*w + x
			if !occ[idx] {
				x++
				continue
			}
			x0 := x
			for x < w && occ[y*w+x] {
				x++
			}
			segmentW := float64(x - x0)
			cx := float64(x0)*tw + (segmentW*tw)/2.0
			cy := float64(y)*th + th/2.0

			m.Colliders = append(m.Colliders, Collider{
				Shape:  ShapeRectangle,
				X:      cx,
				Y:      cy,
				Width:  segmentW * tw,
				Height: th,
			})
		}
	}
}

// processObjectLayer synthesizes colliders and spawn points from an
// objectgroup layer's vector shapes.
func processObjectLayer(layer *TiledLayer, m *Map) {
	isCollision := isCollisionLayer(layer)

	for i := range layer.Objects {
		obj := &layer.Objects[i]
		if !obj.Visible || obj.GID > 0 {
			continue
		}

		worldX := obj.X + obj.Width/2.0
		worldY := obj.Y + obj.Height/2.0

		if isCollision || strings.EqualFold(obj.Type, "collider") {
			switch {
			case obj.Width > 0 && obj.Height > 0 && !obj.Ellipse:
				m.Colliders = append(m.Colliders, Collider{
					Shape: ShapeRectangle, X: worldX, Y: worldY, Width: obj.Width, Height: obj.Height,
				})
			case len(obj.Polygon) > 2:
				points := make([]vector.Vector, len(obj.Polygon))
				minX, minY := obj.Polygon[0].X+obj.X, obj.Polygon[0].Y+obj.Y
				maxX, maxY := minX, minY
				for j, p := range obj.Polygon {
					px, py := p.X+obj.X, p.Y+obj.Y
					points[j] = vector.Vector{X: px, Y: py}
					minX, maxX = minF(minX, px), maxF(maxX, px)
					minY, maxY = minF(minY, py), maxF(maxY, py)
				}
				m.Colliders = append(m.Colliders, Collider{
					Shape: ShapePolygon, X: minX + (maxX-minX)/2, Y: minY + (maxY-minY)/2,
					Width: maxX - minX, Height: maxY - minY, Polygon: points,
				})
			case obj.Ellipse && obj.Width > 0 && obj.Height > 0:
				avgRadius := (obj.Width/2.0 + obj.Height/2.0) / 2.0
				m.Colliders = append(m.Colliders, Collider{Shape: ShapeCircle, X: worldX, Y: worldY, Radius: avgRadius})
			}
			continue
		}

		if strings.EqualFold(obj.Type, "spawn_point") || strings.Contains(strings.ToLower(obj.Name), "spawn") {
			m.SpawnPoints = append(m.SpawnPoints, vector.Vector{X: worldX, Y: worldY})
		}
	}
}

func isCollisionLayer(layer *TiledLayer) bool {
	if strings.Contains(strings.ToLower(layer.Name), "coll") {
		return true
	}
	for _, p := range layer.Properties {
		if strings.EqualFold(p.Name, "collision") {
			if b, ok := p.Value.(bool); ok && b {
				return true
			}
		}
	}
	return false
}

const (
	hFlip uint32 = 0x80000000
	vFlip uint32 = 0x40000000
	dFlip uint32 = 0x20000000
)

func sanitizeGID(gid uint32) uint32 {
	return gid &^ (hFlip | vFlip | dFlip)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
