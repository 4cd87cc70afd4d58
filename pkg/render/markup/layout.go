package markup

import (
	"github.com/matzehuels/wnft/pkg/tree"
)

// frame is a laid-out node. Positions are relative to the parent frame
// until place makes them absolute.
type frame struct {
	node     *tree.Node
	x, y     float64
	w, h     float64
	text     *textBlock
	children []*frame
}

// constraint is what a parent tells a child about the space it may use.
type constraint struct {
	availW float64 // width of the containing block
	availH float64 // height of the containing block, when hasH
	hasH   bool
	fixW   float64 // forced border-box width; negative when free
	fixH   float64
}

func free(availW, availH float64, hasH bool) constraint {
	return constraint{availW: availW, availH: availH, hasH: hasH, fixW: -1, fixH: -1}
}

func (c constraint) withW(w float64) constraint { c.fixW = w; return c }
func (c constraint) withH(h float64) constraint { c.fixH = h; return c }

func (l *layouter) layout(n *tree.Node, c constraint) (*frame, error) {
	st := n.Style
	f := &frame{node: n}

	w, wOK := c.fixW, c.fixW >= 0
	if !wOK {
		w, wOK = st.Width.Resolve(c.availW)
	}
	h, hOK := c.fixH, c.fixH >= 0
	if !hOK && (st.Height.Unit != tree.Percent || c.hasH) {
		h, hOK = st.Height.Resolve(c.availH)
	}
	pad := st.Padding

	switch n.Kind {
	case tree.KindText:
		maxW := c.availW
		if wOK {
			maxW = w
		}
		block, err := l.shape(n, maxW-pad.Horizontal())
		if err != nil {
			return nil, err
		}
		f.text = block
		if !wOK {
			w = block.width + pad.Horizontal()
		}
		if !hOK {
			h = block.height + pad.Vertical()
		}

	case tree.KindImage:
		// Images carry explicit sizes; auto collapses to zero.

	case tree.KindBox:
		var err error
		w, h, err = l.layoutBox(f, c, w, wOK, h, hOK)
		if err != nil {
			return nil, err
		}
	}

	f.w, f.h = max(w, 0), max(h, 0)
	return f, nil
}

// layoutBox lays out the children of a box and returns its final size.
func (l *layouter) layoutBox(f *frame, c constraint, w float64, wOK bool, h float64, hOK bool) (float64, float64, error) {
	st := f.node.Style
	pad := st.Padding
	column := st.Direction == tree.Column

	innerW := c.availW - pad.Horizontal()
	if wOK {
		innerW = w - pad.Horizontal()
	}
	innerH := h - pad.Vertical()

	var flow []int
	f.children = make([]*frame, len(f.node.Children))
	for i, child := range f.node.Children {
		if child.Style.Position != tree.Absolute {
			flow = append(flow, i)
		}
	}

	// First pass: natural sizes.
	used := 0.0
	for _, i := range flow {
		avail := innerW
		if !column {
			avail = max(innerW-used, 0)
		}
		cf, err := l.layout(f.node.Children[i], free(avail, innerH, hOK))
		if err != nil {
			return 0, 0, err
		}
		f.children[i] = cf
		if column {
			used += cf.h
		} else {
			used += cf.w
		}
	}

	// Grow along the main axis when its size is known.
	mainKnown := (column && hOK) || (!column && wOK)
	mainSize := innerW
	if column {
		mainSize = innerH
	}
	if mainKnown && used < mainSize {
		total := 0.0
		for _, i := range flow {
			total += f.node.Children[i].Style.FlexGrow
		}
		if total > 0 {
			extra := mainSize - used
			for _, i := range flow {
				child := f.node.Children[i]
				g := child.Style.FlexGrow
				if g <= 0 {
					continue
				}
				cf := f.children[i]
				cc := free(cf.w, innerH, hOK)
				if column {
					cc = free(innerW, innerH, hOK).withH(cf.h + extra*g/total)
				} else {
					cc = cc.withW(cf.w + extra*g/total)
				}
				grown, err := l.layout(child, cc)
				if err != nil {
					return 0, 0, err
				}
				f.children[i] = grown
			}
			used = mainSize
		}
	}

	// Content cross size, then stretch.
	cross := 0.0
	for _, i := range flow {
		if column {
			cross = max(cross, f.children[i].w)
		} else {
			cross = max(cross, f.children[i].h)
		}
	}
	crossSize := cross
	switch {
	case column && wOK:
		crossSize = innerW
	case !column && hOK:
		crossSize = innerH
	}
	if st.AlignItems == tree.AlignStretch {
		for _, i := range flow {
			child := f.node.Children[i]
			cf := f.children[i]
			var cc constraint
			switch {
			case column && child.Style.Width.IsAuto() && cf.w != crossSize:
				cc = free(crossSize, innerH, hOK).withW(crossSize)
				if child.Style.FlexGrow > 0 && hOK {
					cc = cc.withH(cf.h)
				}
			case !column && child.Style.Height.IsAuto() && cf.h != crossSize:
				cc = free(cf.w, crossSize, true).withH(crossSize).withW(cf.w)
			default:
				continue
			}
			stretched, err := l.layout(child, cc)
			if err != nil {
				return 0, 0, err
			}
			f.children[i] = stretched
		}
	}

	if !wOK {
		if column {
			w = crossSize + pad.Horizontal()
		} else {
			w = used + pad.Horizontal()
		}
		innerW = w - pad.Horizontal()
	}
	if !hOK {
		if column {
			h = used + pad.Vertical()
		} else {
			h = crossSize + pad.Vertical()
		}
		innerH = h - pad.Vertical()
	}

	// Position flow children.
	mainFree := innerW - used
	if column {
		mainFree = innerH - used
	}
	pos := alignOffset(st.JustifyContent, max(mainFree, 0))
	for _, i := range flow {
		cf := f.children[i]
		if column {
			cf.x = pad.Left + alignOffset(st.AlignItems, innerW-cf.w)
			cf.y = pad.Top + pos
			pos += cf.h
		} else {
			cf.x = pad.Left + pos
			cf.y = pad.Top + alignOffset(st.AlignItems, innerH-cf.h)
			pos += cf.w
		}
	}

	// Absolute children are placed against the padding box.
	for i, child := range f.node.Children {
		if child.Style.Position != tree.Absolute {
			continue
		}
		cs := child.Style
		left, lOK := cs.Left.Resolve(w)
		right, rOK := cs.Right.Resolve(w)
		top, tOK := cs.Top.Resolve(h)
		bottom, bOK := cs.Bottom.Resolve(h)

		cc := free(w, h, true)
		if cs.Width.IsAuto() && lOK && rOK {
			cc = cc.withW(w - left - right)
		}
		if cs.Height.IsAuto() && tOK && bOK {
			cc = cc.withH(h - top - bottom)
		}
		cf, err := l.layout(child, cc)
		if err != nil {
			return 0, 0, err
		}
		switch {
		case lOK:
			cf.x = left
		case rOK:
			cf.x = w - right - cf.w
		default:
			cf.x = pad.Left
		}
		switch {
		case tOK:
			cf.y = top
		case bOK:
			cf.y = h - bottom - cf.h
		default:
			cf.y = pad.Top
		}
		f.children[i] = cf
	}

	return w, h, nil
}

// alignOffset positions an item inside free space. Stretch and start both
// pack at the start.
func alignOffset(a tree.Align, space float64) float64 {
	switch a {
	case tree.AlignCenter:
		return space / 2
	case tree.AlignEnd:
		return space
	}
	return 0
}

// place converts relative frame positions to canvas coordinates.
func place(f *frame, ox, oy float64) {
	f.x += ox
	f.y += oy
	for _, c := range f.children {
		place(c, f.x, f.y)
	}
}
