// Package basis builds singular-value-decomposition reduced bases for
// frequency-domain waveform polarizations and projects series onto them.
// Complex series are handled through their real embedding: the real and
// imaginary parts are stacked into one real vector before decomposition.
package basis
