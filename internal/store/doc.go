// Package store provides the SQLite variant database used by the VQL engine.
//
// The store holds:
//   - Variants, their annotations and per-sample genotypes
//   - The field catalog the compiler resolves names against
//   - Selections: named, materialized sets of variant ids
//   - Sets: named lists of values referenced by set("name")
//
// # Selections
//
// A selection is built inside one Tx: the row is staged under a private
// name, members are bulk-inserted with the membership index dropped, the
// index is rebuilt, and the row takes its final name. Any failure rolls
// the whole build back.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Connections are opened through DriverName, which installs a REGEXP
// function so that the ~ operator compiles to plain SQL.
package store
