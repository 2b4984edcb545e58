// Package language defines the fixed set of language codes the translation
// model supports and validation helpers for request language pairs.
package language
