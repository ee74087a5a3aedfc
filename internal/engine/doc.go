// Package engine executes VQL statements against a variant database.
//
// Execute runs a single statement; ExecuteAll runs a script lazily and
// keeps going after a failing statement. Each statement is dispatched on
// its kind:
//
//   - select_cmd: compile with pagination, stream rows
//   - count_cmd: count distinct variant ids, memoized in a bounded LRU
//   - create_cmd, set_cmd, bed_cmd: materialize a selection in one
//     transaction
//   - show_cmd: stream catalog records
//   - import_cmd, drop_cmd: load or delete sets and selections
//
// Every mutating command purges the count cache. Errors are typed:
// vql.ParseError, querysql.CompileError, FeatureError and PathError. Storage
// errors are wrapped with context and otherwise passed through.
package engine
