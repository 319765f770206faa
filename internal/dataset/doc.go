// Package dataset reads and writes the benchmark file formats: raw
// little-endian float32 vector files, text ground-truth files and result
// files, plus the recall measure used to score a run.
package dataset
