// Package vql parses the Variant Query Language into statements.
//
// A VQL script holds one or more commands:
//
//	SELECT chr, pos, sample("alice").gt FROM variants WHERE pos > 10 LIMIT 20
//	COUNT FROM variants WHERE gene IN set('genes')
//	CREATE denovo = A + B
//	DROP selections denovo
//
// Parsing is purely syntactic. Field and table names are not checked here;
// the compiler resolves them against the field catalog.
//
// Keywords are case-insensitive and contextual: a keyword is only special
// where the grammar expects it, so a field may be named "count" or "sets".
// Statements are separated by ";" or simply by the next command keyword.
// "#" starts a comment that runs to the end of the line.
package vql
