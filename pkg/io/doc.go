// Package io serializes pipeline programs and graphs to and from JSON.
//
// The wire format is the canonical external representation: it is used by
// the HTTP API, the store layer (the types carry bson tags for MongoDB),
// and the CLI's file import/export.
//
// Operator values are not serializable; declarations travel by registry
// name instead. Importing a program therefore needs an [op.Registry] that
// can resolve every name the program mentions.
package io
