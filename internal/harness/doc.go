// Package harness runs translation scenarios written in YAML.
//
// A scenario names a CUE schema and a list of queries. Each query is a root
// entity plus clauses whose closures are given in assembly form along with
// their captured values. The harness translates every query against a
// fresh in-memory store, checks the expectations attached to each query,
// evaluates the scenario assertions, and can compare the generated queries
// against golden files.
//
// Run IDs are fixed per scenario so results are reproducible:
//
//	name: uk_customers
//	description: customers from one country
//	schema: ../schema/shop.cue
//	queries:
//	  - name: by_country
//	    entity: Customer
//	    clauses:
//	      - kind: where
//	        code: |
//	          load 1
//	          invokevirtual Customer.getCountry:()String
//	          load 0
//	          invokevirtual String.equals:(Object)boolean
//	          return
//	        captured:
//	          - {type: String, value: UK}
//	    expect:
//	      text: "SELECT A FROM Customer A WHERE A.country = :param0"
//	      params: [UK]
package harness
