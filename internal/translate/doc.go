// Package translate turns composed queries over closures into query text.
//
// A Query is built from a root entity and a sequence of clauses, each a
// compiled closure: Where filters rows, Select replaces the row with a
// computed value and SortedBy adds an ordering key. Build interprets every
// closure, lowers the results against one query source and renders the
// text with its parameter table.
//
// # Failure Policy
//
// When a clause cannot be translated, Options.DieOnError decides what
// happens. If set, Build returns the *ir.TranslationError. Otherwise the
// query is rendered from the clauses before the failed one and
// Result.Residual lists the failed clause and every later one, for the
// caller to apply in-process to the returned rows.
//
// # Caching
//
// Interpretation results are cached per closure identity, schema and
// clause position, and composed plans are cached per query key. At most
// one interpretation of a key runs at a time: concurrent requests wait for
// the running one. Failed interpretations are cached like successful ones.
// A Cache may be backed by a durable store, which is read on a miss and
// written through.
package translate
