package model

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// numMels is the filterbank dimension the model encoder was exported with.
const numMels = 80

// melFrontEnd converts a waveform into the log-mel filterbank features the
// translation encoder consumes: 80 mels over 25ms Hann windows with a 10ms
// hop. It is not safe for concurrent use; the Manager's inference lock
// covers it.
type melFrontEnd struct {
	sampleRate int
	winLength  int // samples per analysis window (25ms)
	hopLength  int // samples between windows (10ms)
	nFFT       int

	window     []float64
	melFilters [][]float64
	fft        *fourier.FFT

	// scratch buffers reused across frames
	frame    []float64
	spectrum []complex128
	power    []float64
}

func newMelFrontEnd(sampleRate int) *melFrontEnd {
	winLength := sampleRate / 40  // 25ms
	hopLength := sampleRate / 100 // 10ms
	nFFT := 512
	for nFFT < winLength {
		nFFT *= 2
	}

	m := &melFrontEnd{
		sampleRate: sampleRate,
		winLength:  winLength,
		hopLength:  hopLength,
		nFFT:       nFFT,
		window:     hannWindow(winLength),
		melFilters: melFilterbank(nFFT, numMels, sampleRate),
		fft:        fourier.NewFFT(nFFT),
		frame:      make([]float64, nFFT),
		spectrum:   make([]complex128, nFFT/2+1),
		power:      make([]float64, nFFT/2+1),
	}

	return m
}

// Compute returns the flattened [frames*numMels] log-mel features and the
// frame count. Frames are left-aligned; trailing samples shorter than one
// window are dropped.
func (m *melFrontEnd) Compute(samples []float32) ([]float32, int) {
	if len(samples) < m.winLength {
		return nil, 0
	}

	frames := 1 + (len(samples)-m.winLength)/m.hopLength
	features := make([]float32, frames*numMels)

	for f := 0; f < frames; f++ {
		start := f * m.hopLength

		// Windowed frame, zero-padded to nFFT.
		for i := 0; i < m.winLength; i++ {
			m.frame[i] = float64(samples[start+i]) * m.window[i]
		}
		for i := m.winLength; i < m.nFFT; i++ {
			m.frame[i] = 0
		}

		m.spectrum = m.fft.Coefficients(m.spectrum, m.frame)

		for i, c := range m.spectrum {
			re, im := real(c), imag(c)
			m.power[i] = re*re + im*im
		}

		for mel := 0; mel < numMels; mel++ {
			var sum float64
			for i, w := range m.melFilters[mel] {
				if w != 0 {
					sum += w * m.power[i]
				}
			}
			if sum < 1e-10 {
				sum = 1e-10
			}
			features[f*numMels+mel] = float32(math.Log(sum))
		}
	}

	return features, frames
}

func hannWindow(length int) []float64 {
	window := make([]float64, length)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(length-1)))
	}
	return window
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}

// melFilterbank builds triangular mel filters over the FFT power bins.
func melFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	nBins := nFFT/2 + 1
	lowMel := hzToMel(0)
	highMel := hzToMel(float64(sampleRate) / 2)

	// nMels+2 equally spaced points on the mel scale mapped back to bins.
	points := make([]float64, nMels+2)
	for i := range points {
		mel := lowMel + (highMel-lowMel)*float64(i)/float64(nMels+1)
		points[i] = melToHz(mel) * float64(nFFT) / float64(sampleRate)
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, nBins)
		left, center, right := points[m], points[m+1], points[m+2]

		for bin := 0; bin < nBins; bin++ {
			b := float64(bin)
			switch {
			case b > left && b < center:
				filters[m][bin] = (b - left) / (center - left)
			case b >= center && b < right:
				filters[m][bin] = (right - b) / (right - center)
			}
		}
	}

	return filters
}
