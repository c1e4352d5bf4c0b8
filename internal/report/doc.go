// Package report names runs and writes their run.json.
//
// A run id looks like BogFlow-<user>-<yymmdd-hhmmss>-<n>, where the
// timestamp is UTC and n is a random number. The run.json file in the run's
// logs directory is written once when the run starts and rewritten when it
// completes, with its results and unsuccessful services.
package report
