// Package core provides the reshape engine and conversion services.
//
// This package holds all domain logic independent of any file format, UI or
// transport layer. It is used by the HTTP server, the CLI and tests without
// modification; spreadsheet I/O is injected through [TableReader] and
// [TableWriter].
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Table: an ordered set of named columns of [Cell] values.
//   - Rule: which column is the index, which columns are melted, how the
//     result is named and sorted. Persisted as JSON or YAML.
//   - OutputMap: the ordered list of output fields, keyed by role.
//   - Session: the editable state an operator builds before a run.
//   - Service: runs a [Plan] over one file or a whole batch.
//
// # Conversion
//
// One conversion is two pure steps:
//
//	long, err := core.Reshape(table, rule, "sales")
//	out, err := core.Project(long, rule, "sales", rule.GeneralOutputMap, nil)
//
// [Reshape] melts the wide table into (index, origin, metric) rows and sorts
// them by the rule's [ExpandMode]. [Project] maps those rows onto the final
// columns in output-map order. [ConvertTable] does both.
//
// # Batches
//
// [Service.RunBatch] checks every file before writing any of them: all files
// must be readable and share the first file's column set. After that each
// file is converted independently, so one bad file does not stop the rest.
//
// # Error Handling
//
// Errors are typed ([ConfigurationError], [ReadError], [WriteError],
// [RuleMismatchError], [HeaderMismatchError]) and mapped to user-friendly
// messages with [MapError]. Each category has a code for support reference:
//
//   - CFG000-CFG006: configuration problems
//   - RULE001, BATCH001: rule and batch structure
//   - FILE001-FILE004, WRITE001: file access
//   - CONV001-CONV003: service limits and timeouts
package core
