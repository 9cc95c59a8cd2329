// Package harness runs ledger scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: approve_then_spend
//	description: "An approved spender moves funds on the owner's behalf"
//	addresses:
//	  process: StuERWgMgDvCdo73c7Ncq1R2HoUhbSs2h5sJ0tKZobQ
//	  alice: XkVOo16KMIHK-zqlR67cuNY0ayXIkPWODWw_HXAE20I
//	  bob: m6W6wreOSejTb2WRHoALM6M7mw3H8D2KmFVBYC1l0O0
//	genesis:
//	  process: ${process}
//	  name: My Coin
//	  owner: ${alice}
//	  balances:
//	    ${alice}: "300"
//	steps:
//	  - from: ${alice}
//	    action: Approve
//	    tags:
//	      Spender: ${bob}
//	      Quantity: "30"
//	    expect:
//	      notices:
//	        - action: Approve-Notice
//	          target: ${alice}
//	        - action: Approval-Notice
//	          target: ${bob}
//	assertions:
//	  - type: allowance
//	    account: ${alice}
//	    spender: ${bob}
//	    equals: "30"
//
// ${name} placeholders are replaced with the named address everywhere:
// genesis values and keys, step fields, expectations and assertions.
// Tag values are strings; quote numbers. Inside YAML flow collections
// ({...} or [...]) placeholders must be quoted.
//
// # Expectations
//
// An expect clause with an error requires the step to be rejected with
// exactly that message. Otherwise the step must succeed. Reply and notice
// tags match as subsets; a listed notices array must match in length and
// order.
//
// # Assertion Types
//
//   - balance: account holds exactly equals
//   - total_supply: total supply is exactly equals
//   - supply_invariant: balances sum to the total supply
//   - allowance: account has granted spender exactly equals
//   - owner: current owner is equals ("nil" once renounced)
//   - paused: paused flag is equals ("true" or "false")
//   - notice_order: notice actions occur in this order, optionally only
//     those sent to target
//
// # Deterministic Execution
//
// Every scenario runs on a real engine over a fresh in-memory SQLite
// journal with sequential message IDs ("step-0001", ...). After the last
// step the journal is replayed and any divergence fails the scenario.
// Traces render as canonical JSON with addresses folded back to their
// ${name} form, so golden files stay readable and stable.
package harness
