// Package schema loads entity mappings written in CUE.
//
// A schema file declares entities and enums at the top level:
//
//	entity: Customer: {
//		table: "customers"
//		fields: {
//			name:    string
//			salary:  int
//			debt:    int | null
//			joined:  "Date"
//			account: "Account"
//		}
//	}
//
//	enum: ItemType: {
//		qualified: "org.example.ItemType"
//		values: ["BIG", "SMALL"]
//	}
//
//	enum: Color: ["RED", "GREEN"]
//
// A field is either a CUE type (string, int, bool, float), a string naming
// a type descriptor, or a struct with type and nullable. Descriptors that
// name another entity or enum are resolved once the whole schema is read.
package schema
