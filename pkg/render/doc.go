// Package render turns a card tree into pixels.
//
// Rendering happens in two steps, each in its own subpackage:
//
//   - [markup] walks a [tree.Node] and emits a self-contained SVG document.
//     Titles and labels are drawn as outlined paths, so the markup has no
//     font dependency, and remote images are inlined as data URIs.
//   - [raster] converts that SVG to PNG at the requested width, either in
//     process ([raster.Native]) or by shelling out to rsvg-convert
//     ([raster.Rsvg]).
//
// Most callers should go through the pipeline package, which also runs the
// image gatekeeper and the composition builder:
//
//	out, err := pipeline.Default().Generate(ctx, req, card.RenderOptions{Size: 1024})
//
// [markup]: github.com/matzehuels/wnft/pkg/render/markup
// [raster]: github.com/matzehuels/wnft/pkg/render/raster
// [raster.Native]: github.com/matzehuels/wnft/pkg/render/raster#Native
// [raster.Rsvg]: github.com/matzehuels/wnft/pkg/render/raster#Rsvg
// [tree.Node]: github.com/matzehuels/wnft/pkg/tree#Node
package render
