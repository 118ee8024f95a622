// Command rt is the raztodo task manager.
//
// Build with `make build` (or `go build -tags sqlite_fts5 ./cmd/rt`) so search
// uses SQLite full-text indexing. A build without the tag falls back to LIKE
// matching and logs a warning when the schema is ensured.
package main

func main() {
	Execute()
}
