// Package checks holds source level policy tests for the signing packages.
//
// The tests load the packages with golang.org/x/tools/go/packages and walk
// their syntax trees looking for secret handling mistakes the type system
// cannot catch, such as a private scalar passed to a logging call.
package checks
