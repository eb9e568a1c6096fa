// Package dataset reads and writes waveform datasets: a parameter table
// plus the plus and cross polarization series for each sample, stored as
// a directory of .npy arrays with a settings.yaml sidecar describing the
// layout. An optional reduced-basis matrix stored alongside enables
// compressed access.
package dataset
