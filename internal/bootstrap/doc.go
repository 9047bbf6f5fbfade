// Package bootstrap locates a doc_forge-style package root on disk and
// resolves its runnable entry point.
//
// The original layout convention places the package sources under
// src/<package> somewhere in the ancestry of the launching script. Location
// is deliberately lenient (it always yields a best-guess root), while
// loading is strict in its final step: when no plausible location remains,
// the error propagates and startup aborts.
package bootstrap
