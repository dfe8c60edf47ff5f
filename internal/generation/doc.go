// Package generation is the boundary to the generative backend. It defines
// the Generator interface, its error values, the deterministic per-tool
// prompt builder and a sample backend that returns canned artifacts for
// local runs.
package generation
