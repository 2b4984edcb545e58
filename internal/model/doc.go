// Package model owns the translation model lifecycle: one-time lazy loading
// with device and precision selection, serialized inference access, and the
// speech-to-speech translation call itself. The Manager is the only stateful,
// long-lived component of the pipeline.
package model
