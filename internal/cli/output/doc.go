// Package output renders meshbbs-cli results as a table, JSON or YAML.
//
// Tables are built by reflection from slices of structs: the json tag names
// the column, `table:"-"` hides a field and `table:"wide"` shows it only with
// --wide. Without --wide, long cells are cut to MaxCellWidth runes.
package output
