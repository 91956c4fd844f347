// Package dispatch executes batches of HTTP request descriptors.
//
// # Overview
//
// A batch is a slice of Source values. Each Source lazily produces an
// immutable Request, so a failure building one descriptor (a missing file,
// say) surfaces only when that item is about to run and never aborts its
// siblings.
//
// Two admission constraints gate every attempt, retries included:
//
//  1. at most Config.MaxOutstanding requests are in flight
//     (golang.org/x/sync/semaphore);
//  2. consecutive attempt starts are at least Config.Interval apart
//     (golang.org/x/time/rate with a burst of one).
//
// Responses with a status in Config.RetryStatuses and transport failures are
// retried until Config.Attempts is reached. Dispatch never fails as a whole;
// it returns one Result per Source, in input order. Callers decide what a
// partial failure means, usually through CheckResults.
package dispatch
