package markup

import (
	"math"
	"strings"
	"testing"

	"github.com/matzehuels/wnft/pkg/compose"
	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/tree"
)

func layoutCard(t *testing.T, root *tree.Node) *frame {
	t.Helper()
	l := &layouter{fonts: fonts.Default()}
	f, err := l.layout(root, free(1600, 1600, true))
	if err != nil {
		t.Fatalf("layout error = %v", err)
	}
	place(f, 0, 0)
	return f
}

func findFrame(f *frame, name string) *frame {
	if f.node.Name == name {
		return f
	}
	for _, c := range f.children {
		if found := findFrame(c, name); found != nil {
			return found
		}
	}
	return nil
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.5 }

func TestLayoutCenteredCard(t *testing.T) {
	f := layoutCard(t, cardTree(t, "Hi", "", ""))

	hero := findFrame(f, compose.NodeHero)
	if !near(hero.w, 1600) || !near(hero.h, 1600) {
		t.Errorf("hero = %vx%v, want to grow to 1600x1600", hero.w, hero.h)
	}
	title := findFrame(f, compose.NodeTitle)
	centerX := title.x + title.w/2
	if !near(centerX, 800) {
		t.Errorf("title center x = %v, want 800", centerX)
	}
	centerY := title.y + title.h/2
	if !near(centerY, 800) {
		t.Errorf("title center y = %v, want 800", centerY)
	}
	if len(title.text.lines) != 1 {
		t.Errorf("short title wrapped into %d lines", len(title.text.lines))
	}

	footer := findFrame(f, compose.NodeFooter)
	if !near(footer.y+footer.h, 1600) || !near(footer.x, 0) || !near(footer.w, 1600) {
		t.Errorf("footer = %+v, want pinned to the bottom edge", footer)
	}
	scrim := findFrame(f, compose.NodeScrim)
	if !near(scrim.y, footer.y-158) || !near(scrim.h, 160) || !near(scrim.w, 1600) {
		t.Errorf("scrim = (%v,%v %vx%v)", scrim.x, scrim.y, scrim.w, scrim.h)
	}

	avatar := findFrame(f, compose.NodeAvatarFrame)
	if !near(avatar.x, 112) || !near(avatar.w, 168) || !near(avatar.h, 168) {
		t.Errorf("avatar frame = (%v %vx%v)", avatar.x, avatar.w, avatar.h)
	}
	fallback := findFrame(f, compose.NodeAvatarFallback)
	if !near(fallback.x, avatar.x) || !near(fallback.w, 168) {
		t.Errorf("fallback does not fill its frame: %+v", fallback)
	}
	identity := findFrame(f, compose.NodeIdentity)
	if !near(identity.x, 112+168) {
		t.Errorf("identity x = %v, want right of avatar", identity.x)
	}
	name := findFrame(f, compose.NodeDisplayName)
	addr := findFrame(f, compose.NodeAddress)
	if addr.y < name.y+name.h-0.5 {
		t.Error("address must sit below the display name")
	}
	if !near(footer.y+footer.h-112, math.Max(avatar.y+avatar.h, identity.y+identity.h)) {
		t.Error("footer bottom padding not applied")
	}
}

func TestLayoutImageCard(t *testing.T) {
	f := layoutCard(t, cardTree(t, "Hello", "https://img.example/a.png", ""))

	img := findFrame(f, compose.NodeFeaturedImage)
	if !near(img.x, 0) || !near(img.y, 0) || !near(img.w, 1600) || !near(img.h, 840) {
		t.Errorf("featured image = (%v,%v %vx%v)", img.x, img.y, img.w, img.h)
	}
	title := findFrame(f, compose.NodeTitle)
	if !near(title.y, 840) {
		t.Errorf("title y = %v, want directly below the image", title.y)
	}
	if !near(title.w, 1600) {
		t.Errorf("title width = %v, want stretched to 1600", title.w)
	}
}

func TestLayoutWrapsLongTitles(t *testing.T) {
	long := strings.Repeat("wonderful ", 12)
	f := layoutCard(t, cardTree(t, long, "", ""))
	title := findFrame(f, compose.NodeTitle)
	if len(title.text.lines) < 2 {
		t.Fatalf("long title should wrap, got %d lines", len(title.text.lines))
	}
	limit := 1600 - 2*108.0
	for i, ln := range title.text.lines {
		if ln.width > limit+0.5 {
			t.Errorf("line %d width %v exceeds %v", i, ln.width, limit)
		}
	}
	wantH := float64(len(title.text.lines))*104*1.21 + 128
	if !near(title.h, wantH) {
		t.Errorf("title height = %v, want %v", title.h, wantH)
	}
}

func TestLayoutEmptyTextKeepsLineHeight(t *testing.T) {
	root := tree.Box("r", tree.Style{Width: tree.Px(100), Height: tree.Px(100), Direction: tree.Column},
		tree.Text("t", tree.Style{FontSize: 50, LineHeight: 1.2}, ""),
	)
	f := layoutCard(t, root)
	txt := findFrame(f, "t")
	if !near(txt.h, 60) {
		t.Errorf("empty text height = %v, want 60", txt.h)
	}
}

func TestLayoutHardBreak(t *testing.T) {
	root := tree.Text("t", tree.Style{FontSize: 10}, "one\ntwo")
	f := layoutCard(t, root)
	if n := len(f.text.lines); n != 2 {
		t.Errorf("lines = %d, want 2", n)
	}
}

func TestLayoutJustifyEnd(t *testing.T) {
	root := tree.Box("r", tree.Style{Width: tree.Px(100), Height: tree.Px(50), JustifyContent: tree.AlignEnd, AlignItems: tree.AlignEnd},
		tree.Box("a", tree.Style{Width: tree.Px(10), Height: tree.Px(10)}),
		tree.Box("b", tree.Style{Width: tree.Px(20), Height: tree.Px(20)}),
	)
	f := layoutCard(t, root)
	a, b := findFrame(f, "a"), findFrame(f, "b")
	if !near(a.x, 70) || !near(b.x, 80) {
		t.Errorf("x = %v, %v; want 70, 80", a.x, b.x)
	}
	if !near(a.y, 40) || !near(b.y, 30) {
		t.Errorf("y = %v, %v; want 40, 30", a.y, b.y)
	}
}

func TestLayoutRightBottomOffsets(t *testing.T) {
	root := tree.Box("r", tree.Style{Width: tree.Px(100), Height: tree.Px(100)},
		tree.Box("abs", tree.Style{Position: tree.Absolute, Right: tree.Px(5), Bottom: tree.Px(10), Width: tree.Pct(20), Height: tree.Px(15)}),
	)
	f := layoutCard(t, root)
	abs := findFrame(f, "abs")
	if !near(abs.x, 75) || !near(abs.y, 75) || !near(abs.w, 20) {
		t.Errorf("abs = (%v,%v %vx%v)", abs.x, abs.y, abs.w, abs.h)
	}
}
