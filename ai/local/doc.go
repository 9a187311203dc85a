// Package local provides in-process text embedding.
//
// Models are resolved by name through a Registry that loads each model once
// per process. The built-in loader serves a lexical feature-hashing model,
// which keeps embedding available when no remote endpoint can be reached.
package local
