// Package gemini provides an implementation of the generation.Generator interface
// backed by Google's Gemini API.
//
// This package is an infrastructure adapter in the hexagonal architecture. It
// sends the tool-specific prompt built by the generation package and returns
// the model's raw text; validation against the artifact schemas happens in the
// caller.
//
// Calls are throttled with a token-bucket limiter and transient failures are
// retried with exponential backoff and jitter. Safety blocks and empty
// answers are permanent and returned immediately. Every returned error wraps
// domain.ErrUpstream through the generation package errors.
package gemini
