// Package artifact defines the typed schema of every generated study artifact
// and the validator that turns untrusted backend output into one of them.
//
// Each tool type maps to exactly one schema. Validate is the only way raw
// output becomes a domain.Artifact; components downstream of it never see an
// unvalidated shape.
package artifact
