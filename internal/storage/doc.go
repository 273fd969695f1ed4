package storage

// Package storage persists the little state the monitor has between runs:
//
//   - The watermark (highest processed tweet id)
//   - A delivery history (what was sent, what failed)
//
// The default file driver keeps the watermark as a plain decimal text file so
// it can be inspected or reset with nothing but a shell.
