// Package conv provides checked integer conversions for the binary encoders.
//
// Counts and dimensions read from a blob are untrusted; every narrowing or
// sign-changing conversion goes through this package and fails with
// ErrOverflow instead of wrapping silently.
package conv
