// Package querysql compiles variant queries to parameterized SQLite SQL.
//
// A Request names the output fields, the source selection, a filter tree
// and the pagination/grouping clauses. The Compiler resolves every field
// against a field catalog, decides which joins are needed (annotations,
// source selection, one per referenced sample) and renders the filter tree.
//
// Values never appear in the SQL text: literals, the source name and
// sample ids are bound as arguments. Identifiers are checked against
// [A-Za-z_][A-Za-z0-9_]* and backtick-quoted.
package querysql
