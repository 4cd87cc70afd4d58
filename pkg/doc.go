// Package pkg provides the libraries behind wnft, a generator for square
// identity cards.
//
// # Overview
//
// A card shows a title in one of two themes and nine accent colors, an
// optional featured image, an optional avatar, and the owner's name and
// address. Cards are rendered to SVG and PNG at any width up to
// [card.MaxRenderSize].
//
// # Architecture
//
// The data flow for one card:
//
//	card.Request
//	     ↓
//	[theme] resolve theme and accent colors
//	     ↓
//	[gatekeeper] probe featured and avatar URLs (cached in [cache])
//	     ↓
//	[typography] size the title
//	     ↓
//	[compose] build the [tree] of the card
//	     ↓
//	[render/markup] SVG → [render/raster] PNG
//
// [pipeline] runs the whole flow and is what the CLI and the HTTP server
// call:
//
//	out, err := pipeline.Default().Generate(ctx, card.Request{
//	    Title:  "ETHDenver 2025",
//	    Theme:  theme.Dark,
//	    Accent: theme.AccentPurple,
//	}, card.RenderOptions{Size: 1024})
//
// # Main Packages
//
// ## Domain
//
// [card] - Request and canvas types shared by every stage.
//
// [theme] - Theme and accent parsing and the color tables.
//
// [typography] - Title size table and the pixel scale.
//
// [compose] - Lays a card out as a tree of boxes, images and text.
//
// ## Rendering
//
// [render/markup] - Emits SVG with text drawn as outlines. Glyph shapes come
// from [fonts]; characters the fonts lack are looked up in [graphemes].
//
// [render/raster] - SVG to PNG, in process or through rsvg-convert.
//
// ## Infrastructure
//
// [httputil] - Image probing and fetching with retries and private host
// blocking.
//
// [cache] - Probe cache backends: none, file, Redis and MongoDB.
//
// [observability] - Hooks for pipeline stages, image verdicts, cache use
// and HTTP requests, plus an in-memory [observability.Stats] collector.
//
// [errors] - Coded errors with user-facing messages.
//
// # Testing
//
//	go test ./...                       # unit tests
//	go test -tags integration ./pkg/... # Redis and MongoDB backends
//
// [card]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/card
// [card.MaxRenderSize]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/card#MaxRenderSize
// [theme]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/theme
// [gatekeeper]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/gatekeeper
// [cache]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/cache
// [typography]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/typography
// [compose]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/compose
// [tree]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/tree
// [render/markup]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/render/markup
// [render/raster]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/render/raster
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/pipeline
// [fonts]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/fonts
// [graphemes]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/graphemes
// [httputil]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/observability
// [observability.Stats]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/observability#Stats
// [errors]: https://pkg.go.dev/github.com/matzehuels/wnft/pkg/errors
package pkg
