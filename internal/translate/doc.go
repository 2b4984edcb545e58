// Package translate orchestrates a single translation request: validate the
// language pair, normalize the uploaded audio, run the model, and encode the
// synthesized waveform into a playable response.
package translate
