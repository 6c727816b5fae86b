// boletos runs the billing pipeline from the command line: CSV import with lot
// reconciliation, positional split of the source PDF, reports and statistics,
// plus the registry maintenance of lots and external mappings.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/boletos import ./boletos.csv
//
// Every command prints JSON on stdout.
package main

func main() {
	Execute()
}
