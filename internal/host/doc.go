// Package host provides the narrow interface through which the claims
// workflows read their inputs: credentials, per-item parameters and the
// continue-on-failure policy.
//
// Two implementations are provided. FileHost reads a batch of items from a
// YAML or JSON items file:
//
//	operation: encrypt_payload
//	continue_on_failure: true
//	defaults:
//	  courseId: TGS-2020002106
//	  courseRunId: "10026"
//	items:
//	  - individualNric: S1234567A
//	    courseFee: 500.00
//	    courseStartDate: 2024-03-01
//
// Parameters are looked up on the item first and then in defaults. MapHost
// holds a single item built from command-line flags.
package host
