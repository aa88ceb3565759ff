// Package async runs independent tasks concurrently with error collection.
//
// [Run] executes tasks with an optional concurrency limit and returns every
// failure joined into one error.
package async
