// Package votedb provides SQLite-based storage for crowd vote tallies.
//
// VoteDB backs the vote-store server. Each identity has one row holding
// its fake and real counters; a vote is a single UPSERT that increments
// exactly one counter and returns the new row.
//
// We use SQLite via modernc.org/sqlite so the server stays a single
// CGO-free binary with a single database file.
package votedb
