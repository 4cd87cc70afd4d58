package markup

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/compose"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/graphemes"
	"github.com/matzehuels/wnft/pkg/theme"
	"github.com/matzehuels/wnft/pkg/tree"
)

type fakeImages struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (f *fakeImages) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, "image/png; charset=binary", nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func cardTree(t *testing.T, title string, featured, avatar string) *tree.Node {
	t.Helper()
	styles, err := theme.Resolve(theme.Dark)
	if err != nil {
		t.Fatal(err)
	}
	in := compose.Input{
		Request: card.Request{
			Title:       title,
			Accent:      theme.AccentPurple,
			Theme:       theme.Dark,
			Address:     "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
			DisplayName: "vitalik.eth",
		},
		Styles:    styles,
		TitleSize: 104,
	}
	if featured != "" {
		in.Featured = gatekeeper.Checked{URL: featured, Width: 1600, Height: 840, ContentType: "image/png"}
	}
	if avatar != "" {
		in.Avatar = gatekeeper.Checked{URL: avatar, Width: 400, Height: 400, ContentType: "image/png"}
	}
	root, err := compose.NewBuilder(card.DefaultCanvas()).Build(in)
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func generate(t *testing.T, root *tree.Node, opts Options) []byte {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 1600, 1600
	}
	out, err := Generate(context.Background(), root, opts)
	if err != nil {
		t.Fatalf("Generate error = %v", err)
	}
	return out
}

// wellFormed fails unless doc parses as XML.
func wellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("output is not well-formed XML: %v", err)
		}
	}
}

func TestGenerateOutlinesText(t *testing.T) {
	out := generate(t, cardTree(t, "Proof of Attendance", "", ""), Options{})
	wellFormed(t, out)
	s := string(out)
	if strings.Contains(s, "<text") {
		t.Error("markup must not contain <text> elements")
	}
	if !strings.Contains(s, "<path") {
		t.Error("text should be drawn as paths")
	}
	if !strings.Contains(s, `viewBox="0 0 1600 1600"`) {
		t.Error("missing viewBox")
	}
	if !strings.Contains(s, "<linearGradient") {
		t.Error("scrim gradient missing")
	}
}

func TestGenerateSubstitutesGraphemes(t *testing.T) {
	table := graphemes.Default()
	star, ok := table.Lookup("★")
	if !ok {
		t.Fatal("default table lacks ★")
	}

	root := cardTree(t, "gm ★ frens", "", "")
	with := string(generate(t, root, Options{Graphemes: table}))
	if !strings.Contains(with, star) {
		t.Error("★ should be emitted as its table image")
	}
	without := string(generate(t, root, Options{}))
	if strings.Contains(without, star) {
		t.Error("no substitution expected without a table")
	}
}

func TestGenerateInlinesImages(t *testing.T) {
	const featured = "https://img.example/hero.png"
	const avatar = "https://img.example/me.png"
	src := &fakeImages{data: pngBytes(t, 4, 4)}

	out := string(generate(t, cardTree(t, "Hello", featured, avatar), Options{Images: src}))
	if strings.Contains(out, featured) || strings.Contains(out, avatar) {
		t.Error("remote URLs must be inlined")
	}
	if n := strings.Count(out, "data:image/png;base64,"); n != 2 {
		t.Errorf("inlined images = %d, want 2", n)
	}
	if !strings.Contains(out, "xMidYMid slice") {
		t.Error("cover images should use slice")
	}
	if !strings.Contains(out, "<clipPath") {
		t.Error("avatar should be clipped to a circle")
	}
	if src.calls.Load() != 2 {
		t.Errorf("fetches = %d, want 2", src.calls.Load())
	}
}

func TestGenerateImageFetchFails(t *testing.T) {
	src := &fakeImages{err: errors.New("connection reset")}
	_, err := Generate(context.Background(), cardTree(t, "x", "https://img.example/a.png", ""), Options{Width: 1600, Height: 1600, Images: src})
	if err == nil {
		t.Fatal("expected error when an image cannot be loaded")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	src := &fakeImages{data: pngBytes(t, 2, 2)}
	root := cardTree(t, "Same input ⟠ same bytes", "https://img.example/a.png", "https://img.example/b.png")
	opts := Options{Graphemes: graphemes.Default(), Images: src}
	a := generate(t, root, opts)
	b := generate(t, root, opts)
	if !bytes.Equal(a, b) {
		t.Error("Generate is not deterministic")
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := Generate(ctx, nil, Options{Width: 10, Height: 10}); err == nil {
		t.Error("nil tree should fail")
	}
	if _, err := Generate(ctx, tree.Box("r", tree.Style{}), Options{}); err == nil {
		t.Error("zero size should fail")
	}
	bad := tree.Text("t", tree.Style{}, "no font size")
	if _, err := Generate(ctx, bad, Options{Width: 10, Height: 10}); err == nil {
		t.Error("invalid tree should fail")
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, cardTree(t, "x", "", ""), Options{Width: 1600, Height: 1600})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGradientVector(t *testing.T) {
	tests := []struct {
		angle          float64
		x1, y1, x2, y2 uint8
	}{
		{0, 50, 100, 50, 0},
		{90, 0, 50, 100, 50},
		{180, 50, 0, 50, 100},
	}
	for _, tt := range tests {
		x1, y1, x2, y2 := gradientVector(tt.angle)
		if x1 != tt.x1 || y1 != tt.y1 || x2 != tt.x2 || y2 != tt.y2 {
			t.Errorf("gradientVector(%v) = %d %d %d %d", tt.angle, x1, y1, x2, y2)
		}
	}
}
