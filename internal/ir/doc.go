// Package ir provides the leaf types shared by the VQL parser, the filter
// tree and the SQL compiler.
//
// This package contains value and field-reference types plus their
// canonical encoding. All other internal packages import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - Value is a sealed family: Int, Float, String, Bool, List, SetRef
//   - List holds scalars only (no nested lists, no set references)
//   - FieldRef is a plain value type, comparable with ==
//   - Canonical encoding (MarshalCanonical) is the only input to cache keys
package ir
