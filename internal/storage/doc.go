// Package storage opens the persistent store behind the BBS services.
//
// Three engines implement service.Repository:
//
//   - sqlite (package sqlstore): the default, one file, pure Go driver
//   - badger: KVRepository on an embedded Badger database
//   - memory (package memory): volatile, for tests and throwaway nodes
//
// When a mail key is configured the chosen engine is wrapped by package
// sealed so mail content is encrypted at rest. Package archive moves whole
// databases between engines.
package storage
