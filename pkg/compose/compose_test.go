package compose

import (
	"reflect"
	"testing"

	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/theme"
	"github.com/matzehuels/wnft/pkg/tree"
)

func input(t *testing.T, th theme.Theme, featured, avatar gatekeeper.Checked) Input {
	t.Helper()
	styles, err := theme.Resolve(th)
	if err != nil {
		t.Fatal(err)
	}
	return Input{
		Request: card.Request{
			Title:       "Hello",
			Accent:      theme.AccentBlue,
			Theme:       th,
			Address:     "0xABC",
			DisplayName: "Alice",
		},
		Styles:    styles,
		Featured:  featured,
		Avatar:    avatar,
		TitleSize: 150,
	}
}

var (
	featuredOK = gatekeeper.Checked{URL: "https://img.example/hero.png", Width: 1600, Height: 840, ContentType: "image/png"}
	avatarOK   = gatekeeper.Checked{URL: "https://img.example/me.png", Width: 400, Height: 400, ContentType: "image/png"}
)

func build(t *testing.T, in Input) *tree.Node {
	t.Helper()
	root, err := NewBuilder(card.DefaultCanvas()).Build(in)
	if err != nil {
		t.Fatalf("Build error = %v", err)
	}
	if err := root.Validate(); err != nil {
		t.Fatalf("tree invalid: %v", err)
	}
	return root
}

func TestChooseHero(t *testing.T) {
	if _, ok := ChooseHero(gatekeeper.Checked{}).(CenteredHero); !ok {
		t.Error("absent image should choose CenteredHero")
	}
	h, ok := ChooseHero(featuredOK).(ImageHero)
	if !ok || h.Src != featuredOK.URL {
		t.Errorf("ChooseHero(featured) = %#v, want ImageHero", h)
	}
}

func TestCenteredLayout(t *testing.T) {
	in := input(t, theme.Dark, gatekeeper.Checked{}, gatekeeper.Checked{})
	root := build(t, in)

	if root.Find(NodeFeaturedImage) != nil {
		t.Error("centered layout must not contain a featured image")
	}
	hero := root.Find(NodeHero)
	if hero.Style.FlexGrow != 1 || hero.Style.AlignItems != tree.AlignCenter || hero.Style.JustifyContent != tree.AlignCenter {
		t.Errorf("hero style = %+v, want centered flex-grow row", hero.Style)
	}
	if hero.Style.Padding.Left != 108 || hero.Style.Padding.Right != 108 {
		t.Errorf("hero padding = %+v", hero.Style.Padding)
	}

	title := root.Find(NodeTitle)
	blue, _ := in.Styles.Accent(theme.AccentBlue)
	if title.Style.Color != blue {
		t.Errorf("centered title color = %s, want accent %s", title.Style.Color.CSS(), blue.CSS())
	}
	if title.Style.TextAlign != tree.TextCenter || title.Style.LineHeight != 1.21 || title.Style.Padding.Bottom != 128 {
		t.Errorf("centered title style = %+v", title.Style)
	}
	if title.Style.FontSize != 150 {
		t.Errorf("title font size = %v, want 150", title.Style.FontSize)
	}
}

func TestImageLayout(t *testing.T) {
	in := input(t, theme.Light, featuredOK, gatekeeper.Checked{})
	root := build(t, in)

	frame := root.Find(NodeFeaturedFrame)
	if frame == nil {
		t.Fatal("image layout must contain the featured frame")
	}
	if w, _ := frame.Style.Width.Resolve(0); w != 1600 {
		t.Errorf("featured frame width = %v", w)
	}
	if h, _ := frame.Style.Height.Resolve(0); h != 840 {
		t.Errorf("featured frame height = %v", h)
	}
	img := root.Find(NodeFeaturedImage)
	if img.Src != featuredOK.URL || img.Style.ObjectFit != tree.FitCover {
		t.Errorf("featured image = %+v", img)
	}

	title := root.Find(NodeTitle)
	if title.Style.Color != in.Styles.Foreground {
		t.Error("image layout title must use the theme foreground")
	}
	if title.Style.Padding != (tree.Edges{Top: 90, Right: 103, Left: 103}) || title.Style.LineHeight != 1.13 {
		t.Errorf("image title style = %+v", title.Style)
	}
	if root.Find(NodeHero).Style.FlexGrow != 0 {
		t.Error("image hero must not be the centered variant")
	}
}

func TestAvatarFallback(t *testing.T) {
	in := input(t, theme.Dark, gatekeeper.Checked{}, gatekeeper.Checked{})
	root := build(t, in)

	if root.Find(NodeAvatarImage) != nil {
		t.Error("no avatar image expected")
	}
	fb := root.Find(NodeAvatarFallback)
	if fb == nil {
		t.Fatal("fallback circle missing")
	}
	blue, _ := in.Styles.Accent(theme.AccentBlue)
	if fb.Style.Background == nil || *fb.Style.Background != blue {
		t.Error("fallback must be filled with the accent color")
	}
	if fb.Style.Radius != 84 {
		t.Errorf("fallback radius = %v, want 84", fb.Style.Radius)
	}
	frame := root.Find(NodeAvatarFrame)
	if w, _ := frame.Style.Width.Resolve(0); w != 168 {
		t.Errorf("avatar frame width = %v, want 168", w)
	}
}

func TestAvatarBorderByTheme(t *testing.T) {
	for _, tt := range []struct {
		th   theme.Theme
		want func(theme.Styles) theme.Color
	}{
		{theme.Light, func(s theme.Styles) theme.Color { return s.ForegroundSecondary }},
		{theme.Dark, func(s theme.Styles) theme.Color { return s.ForegroundTertiary }},
	} {
		in := input(t, tt.th, gatekeeper.Checked{}, avatarOK)
		root := build(t, in)
		img := root.Find(NodeAvatarImage)
		if img == nil {
			t.Fatalf("%s: avatar image missing", tt.th)
		}
		if img.Style.Border.Width != 4 || img.Style.Border.Color != tt.want(in.Styles) {
			t.Errorf("%s: border = %+v", tt.th, img.Style.Border)
		}
		if img.Style.Radius != 84 {
			t.Errorf("%s: radius = %v, want 84", tt.th, img.Style.Radius)
		}
		if root.Find(NodeAvatarFallback) != nil {
			t.Errorf("%s: fallback present alongside image", tt.th)
		}
	}
}

func TestFooterAndScrim(t *testing.T) {
	in := input(t, theme.Dark, gatekeeper.Checked{}, gatekeeper.Checked{})
	root := build(t, in)

	footer := root.Find(NodeFooter)
	if footer.Style.Position != tree.Absolute || footer.Style.Padding != (tree.Edges{Bottom: 112, Left: 112}) {
		t.Errorf("footer style = %+v", footer.Style)
	}
	if footer.Children[0].Name != NodeScrim {
		t.Error("scrim must be painted first in the footer")
	}

	scrim := root.Find(NodeScrim)
	if top, _ := scrim.Style.Top.Resolve(0); top != -158 {
		t.Errorf("scrim top = %v, want -158", top)
	}
	g := scrim.Style.Gradient
	if g == nil || g.Angle != 0 || len(g.Stops) != 2 {
		t.Fatalf("scrim gradient = %+v", g)
	}
	if g.Stops[0].Color != in.Styles.Background || g.Stops[1].Color != in.Styles.BackgroundNoOpacity {
		t.Error("scrim must fade from background to transparent background")
	}

	name := root.Find(NodeDisplayName)
	addr := root.Find(NodeAddress)
	if name.Text != "Alice" || name.Style.FontSize != 75 || name.Style.FontWeight != tree.WeightSemiBold {
		t.Errorf("display name = %+v", name)
	}
	if addr.Text != "0xABC" || addr.Style.FontSize != 61 || addr.Style.Color != in.Styles.TextTertiary {
		t.Errorf("address = %+v", addr)
	}
	if name.Style.FontSize <= addr.Style.FontSize {
		t.Error("display name must outweigh the address")
	}
}

func TestEmptyFields(t *testing.T) {
	in := input(t, theme.Light, gatekeeper.Checked{}, gatekeeper.Checked{})
	in.Request.Title, in.Request.DisplayName, in.Request.Address = "", "", ""
	root := build(t, in)
	for _, name := range []string{NodeTitle, NodeDisplayName, NodeAddress} {
		n := root.Find(name)
		if n == nil || n.Kind != tree.KindText {
			t.Errorf("%s: empty text must still produce a text node", name)
		}
	}
}

func TestRootIsSquare(t *testing.T) {
	root := build(t, input(t, theme.Dark, featuredOK, avatarOK))
	w, _ := root.Style.Width.Resolve(0)
	h, _ := root.Style.Height.Resolve(0)
	if w != h || w != 1600 {
		t.Errorf("root = %vx%v, want 1600x1600", w, h)
	}
}

func TestBuildDeterministic(t *testing.T) {
	in := input(t, theme.Dark, featuredOK, avatarOK)
	a := build(t, in)
	b := build(t, in)
	if !reflect.DeepEqual(a, b) {
		t.Error("Build is not deterministic")
	}
}

func TestBuildInvalidAccent(t *testing.T) {
	in := input(t, theme.Dark, gatekeeper.Checked{}, gatekeeper.Checked{})
	in.Request.Accent = "cyan"
	if _, err := NewBuilder(card.DefaultCanvas()).Build(in); err == nil {
		t.Error("expected error for unknown accent")
	}
}
