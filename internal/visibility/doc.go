// Package visibility decides what an observer may perceive and produces
// redacted projections of world records.
//
// Redaction is the only sanctioned read path for consumers outside the
// core. The executor and effect handlers never call into this package.
//
// Every projection has the same shape: id, kind, name, visible and fields.
// A record the observer cannot see comes back with the placeholder name
// and no fields, so callers never branch on shape.
package visibility
