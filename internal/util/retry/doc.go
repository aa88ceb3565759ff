// Package retry re-runs operations that fail transiently, backing off
// exponentially between attempts. Errors marked with Permanent end the loop
// immediately. Downloads are the main caller: a 503 from a CDN is retried, a
// 404 is not.
package retry
