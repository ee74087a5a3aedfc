// Package harness runs VQL conformance scenarios.
//
// A scenario is a YAML file: a fixture database, an optional CUE
// configuration, optional files (BED regions, set word lists) and a list
// of VQL steps, each with an optional expectation. After the steps,
// assertions check the selections and sets left in the database.
//
//	name: create_from_filter
//	description: CREATE stores the filtered variants as a selection
//	fixture:
//	  variants:
//	    - {id: 1, chr: chr1, pos: 100, ref: A, alt: T, qual: 30}
//	    - {id: 2, chr: chr1, pos: 200, ref: G, alt: C, qual: 10}
//	steps:
//	  - vql: CREATE good FROM variants WHERE qual > 20
//	    expect:
//	      record: {count: 1}
//	assertions:
//	  - {type: selection, name: good, count: 1, ids: [1]}
//
// Each scenario runs against a fresh in-memory database with a fixed
// execution id, so its trace can be compared against a golden file
// (RunWithGolden).
package harness
