// Package shaders provides the embedded default GLSL sources.
package shaders

import "embed"

// Vertex and Fragment are the resource names the app loads.
const (
	Vertex   = "vertex.glsl"
	Fragment = "fragment.glsl"
)

// FS holds the default shader sources.
//
//go:embed vertex.glsl fragment.glsl
var FS embed.FS
