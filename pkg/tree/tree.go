// Package tree defines the styled node tree handed from the composition
// builder to the markup generator.
//
// The style vocabulary is a small flexbox subset: direction, absolute
// positioning, padding, pixel and percent sizing, flex-grow, alignment,
// colors, linear gradients, borders and corner radii. Nodes are built fresh
// for every card and never shared.
package tree

import (
	"fmt"

	"github.com/matzehuels/wnft/pkg/theme"
)

// Kind distinguishes node types.
type Kind int

// Node kinds.
const (
	KindBox Kind = iota
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Unit is the unit of a Length.
type Unit int

// Length units. The zero Length is Auto.
const (
	Auto Unit = iota
	Pixels
	Percent
)

// Length is a dimension or offset.
type Length struct {
	Value float64
	Unit  Unit
}

// Px returns a pixel length.
func Px(v float64) Length { return Length{Value: v, Unit: Pixels} }

// Pct returns a percentage of the containing box.
func Pct(v float64) Length { return Length{Value: v, Unit: Percent} }

// IsAuto reports whether l is unset.
func (l Length) IsAuto() bool { return l.Unit == Auto }

// Resolve returns l in pixels against a container of size base. ok is false
// for Auto.
func (l Length) Resolve(base float64) (px float64, ok bool) {
	switch l.Unit {
	case Pixels:
		return l.Value, true
	case Percent:
		return base * l.Value / 100, true
	}
	return 0, false
}

func (l Length) String() string {
	switch l.Unit {
	case Pixels:
		return fmt.Sprintf("%gpx", l.Value)
	case Percent:
		return fmt.Sprintf("%g%%", l.Value)
	}
	return "auto"
}

// Edges is a set of per-side pixel insets.
type Edges struct {
	Top, Right, Bottom, Left float64
}

// Horizontal is Left+Right.
func (e Edges) Horizontal() float64 { return e.Left + e.Right }

// Vertical is Top+Bottom.
func (e Edges) Vertical() float64 { return e.Top + e.Bottom }

// Direction is the flex main axis.
type Direction int

const (
	Row Direction = iota
	Column
)

// Position selects in-flow or absolute placement.
type Position int

const (
	Relative Position = iota
	Absolute
)

// Align is used for both align-items and justify-content. The zero value
// stretches auto-sized children across the cross axis; as justify-content it
// packs children at the start.
type Align int

const (
	AlignStretch Align = iota
	AlignStart
	AlignCenter
	AlignEnd
)

// TextAlign aligns lines within a text node.
type TextAlign int

const (
	TextLeft TextAlign = iota
	TextCenter
	TextRight
)

// ObjectFit controls how an image fills its box.
type ObjectFit int

const (
	FitFill ObjectFit = iota
	FitCover
)

// Font weights.
const (
	WeightRegular  = 400
	WeightSemiBold = 600
)

// Stop is one color stop of a gradient. Offset is in [0, 1].
type Stop struct {
	Offset float64
	Color  theme.Color
}

// Gradient is a CSS-style linear gradient. Angle follows CSS: 0deg runs
// bottom to top, 90deg left to right.
type Gradient struct {
	Angle float64
	Stops []Stop
}

// Border is a solid border drawn inside the box.
type Border struct {
	Width float64
	Color theme.Color
}

// Style is the layout and paint style of a node.
type Style struct {
	Width, Height Length
	Direction     Direction
	Position      Position
	// Offsets apply to absolutely positioned nodes. Auto means unset.
	Top, Right, Bottom, Left Length
	Padding                  Edges
	FlexGrow                 float64
	AlignItems               Align
	JustifyContent           Align
	TextAlign                TextAlign

	Background *theme.Color
	Gradient   *Gradient
	Color      theme.Color
	Border     Border
	Radius     float64
	ObjectFit  ObjectFit

	FontFamily    string
	FontWeight    int
	FontSize      float64
	LineHeight    float64 // multiple of FontSize; zero means 1.2
	LetterSpacing float64 // multiple of FontSize
}

// Node is one element of the tree.
type Node struct {
	Kind     Kind
	Name     string // role label, e.g. "title" or "avatar"
	Style    Style
	Text     string // KindText
	Src      string // KindImage
	Children []*Node
}

// Box returns a container node.
func Box(name string, style Style, children ...*Node) *Node {
	return &Node{Kind: KindBox, Name: name, Style: style, Children: children}
}

// Text returns a text leaf.
func Text(name string, style Style, text string) *Node {
	return &Node{Kind: KindText, Name: name, Style: style, Text: text}
}

// Image returns an image leaf.
func Image(name string, style Style, src string) *Node {
	return &Node{Kind: KindImage, Name: name, Style: style, Src: src}
}

// Walk visits n and its descendants depth-first in paint order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node named name, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Images returns the Src of every image node in paint order.
func (n *Node) Images() []string {
	var srcs []string
	n.Walk(func(c *Node) bool {
		if c.Kind == KindImage {
			srcs = append(srcs, c.Src)
		}
		return true
	})
	return srcs
}

// Validate checks structural rules: leaves have no children, image nodes
// have a source, and sizes are non-negative.
func (n *Node) Validate() error {
	var err error
	n.Walk(func(c *Node) bool {
		if err != nil {
			return false
		}
		switch {
		case c.Kind != KindBox && len(c.Children) > 0:
			err = fmt.Errorf("%s node %q has children", c.Kind, c.Name)
		case c.Kind == KindImage && c.Src == "":
			err = fmt.Errorf("image node %q has no source", c.Name)
		case c.Style.Width.Value < 0 || c.Style.Height.Value < 0:
			err = fmt.Errorf("node %q has negative size", c.Name)
		case c.Kind == KindText && c.Style.FontSize <= 0:
			err = fmt.Errorf("text node %q has no font size", c.Name)
		}
		return true
	})
	return err
}
