// Package types defines the table registry, record and result types, the
// configuration model, and the error taxonomy shared by the mosync engine,
// its CLI, and the HTTP trigger.
//
// The engine copies rows one way, from a local SQLite store into a central
// relational database. Every run ends in exactly one Outcome: Success,
// Failure, or Timeout.
package types
