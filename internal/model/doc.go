// Package model defines records, model descriptors, and the attribute
// routing layer.
//
// A Descriptor declares a model type: its name, an optional path group,
// and a schema mapping attribute names to Attribute handlers. A Record
// is one live instance of a model type. Attribute access on a record
// routes through the schema: declared keys go through their Attribute
// handler (which owns marshaling and dirty tracking), undeclared keys
// are plain raw storage.
//
// Records carry the lifecycle state the store layer drives:
// new -> loading -> valid -> (saving) -> deleted/unloaded.
package model
